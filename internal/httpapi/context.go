package httpapi

import (
	"context"

	"llmapi/internal/chat"
)

// serverBaseCtx is a process-level context that can be canceled on shutdown.
// Defaults to Background if not set.
var serverBaseCtx = context.Background()

// SetBaseContext sets the process-level base context used by handlers.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}

// joinContexts returns a context that is canceled when either a or b is done.
// The returned cancel func must be called to release the goroutine when handler ends.
func joinContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-a.Done():
			cancel()
		case <-b.Done():
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// disconnectEvent is what net/http's receive side amounts to: the only event
// a handler can observe is the connection going away.
const disconnectEvent = "http.disconnect"

// connReceiver reports a disconnect once conn is done (client gone, or the
// server shutting down when conn is joined with the base context).
func connReceiver(conn context.Context) chat.Receiver {
	return chat.ReceiverFunc(func(ctx context.Context) (chat.TransportEvent, error) {
		select {
		case <-conn.Done():
			return chat.TransportEvent{Type: disconnectEvent}, nil
		case <-ctx.Done():
			return chat.TransportEvent{}, ctx.Err()
		}
	})
}
