package httpapi

import (
	"context"
	"sync/atomic"
	"time"

	"llmapi/internal/chat"
	"llmapi/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Query(ctx context.Context, messages []chat.Message, signal *chat.Signal) (*chat.FragmentStream, error)
	Status() types.StatusResponse
	Ready() bool
}

// ModelService exposes a chat.Model to the HTTP layer.
type ModelService struct {
	model   *chat.Model
	engine  string
	started time.Time
	ready   atomic.Bool
}

var _ Service = (*ModelService)(nil)

// NewModelService wraps m; engine names the runtime for /status. The service
// reports not-ready until SetReady(true).
func NewModelService(m *chat.Model, engine string) *ModelService {
	return &ModelService{model: m, engine: engine, started: time.Now()}
}

func (s *ModelService) Query(ctx context.Context, messages []chat.Message, signal *chat.Signal) (*chat.FragmentStream, error) {
	return s.model.Query(ctx, messages, signal)
}

func (s *ModelService) Status() types.StatusResponse {
	st := s.model.Status()
	st.Engine = s.engine
	st.UptimeSeconds = int64(time.Since(s.started).Seconds())
	return st
}

func (s *ModelService) Ready() bool { return s.ready.Load() }

// SetReady flips readiness, e.g. once the static prompt is in place or when
// draining for shutdown.
func (s *ModelService) SetReady(v bool) { s.ready.Store(v) }
