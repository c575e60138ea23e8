package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-contrib/sse"

	"llmapi/internal/chat"
)

// sseWriter frames fragments as server-sent events and flushes each one.
type sseWriter struct {
	w     http.ResponseWriter
	flush func()
	event string
}

func newSSEWriter(w http.ResponseWriter, event string) *sseWriter {
	s := &sseWriter{w: w, flush: func() {}, event: event}
	if f, ok := w.(http.Flusher); ok {
		s.flush = f.Flush
	}
	return s
}

func (s *sseWriter) start() {
	h := s.w.Header()
	h.Set("Content-Type", sse.ContentType)
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)
	s.flush()
}

// lineBreaks folds every SSE line terminator into "\n"; a bare "\r" cannot
// travel inside an event.
var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// sseData prepares a fragment for sse.Encode. Encode splits data on "\n" into
// "data:" lines without the optional space, and clients strip exactly one
// leading space per line, so each line gets one.
func sseData(fragment string) string {
	return " " + strings.ReplaceAll(lineBreaks.Replace(fragment), "\n", "\n ")
}

// send writes one event and flushes it.
func (s *sseWriter) send(data string) error {
	if err := sse.Encode(s.w, sse.Event{Event: s.event, Data: sseData(data)}); err != nil {
		return err
	}
	s.flush()
	return nil
}

// handleStream pushes each fragment to the client as it is generated. The
// signal is set exactly once when the handler returns, whatever the reason.
//
// @Summary  Stream a chat answer
// @Tags     chat
// @Accept   json
// @Produce  text/event-stream
// @Param    request    body  types.QueryRequest true  "Chat messages"
// @Param    event_type query string             false "SSE event name"
// @Success  200 {string} string "event stream of text fragments"
// @Failure  400 {object} types.ErrorResponse
// @Router   /v1/chat/stream [post]
func handleStream(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		messages, ok := decodeQuery(w, r)
		if !ok {
			return
		}
		rl := newReqLog(r, "/v1/chat/stream")
		rl.begin(len(messages))

		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		signal := chat.NewSignal()
		defer signal.Set()

		out := newSSEWriter(w, r.URL.Query().Get("event_type"))
		stream, err := svc.Query(ctx, messages, signal)
		if isRejected(err) {
			out.start()
			_ = out.send(chat.Fallback)
			rl.end(http.StatusOK, 0, nil)
			return
		}
		if err != nil {
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			status, msg := statusFor(err)
			writeJSONError(w, status, msg)
			rl.end(status, 0, err)
			return
		}
		defer stream.Close()

		out.start()
		for {
			frag, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				// Headers are gone; tell the client in-band and keep the
				// detail in the log.
				rl.end(http.StatusInternalServerError, stream.Count(), err)
				_ = sse.Encode(w, sse.Event{Event: "error", Data: " " + http.StatusText(http.StatusInternalServerError)})
				out.flush()
				return
			}
			rl.fragment(stream.Count()-1, frag)
			if err := out.send(frag); err != nil {
				signal.Set()
				break
			}
		}
		rl.end(http.StatusOK, stream.Count(), nil)
	}
}
