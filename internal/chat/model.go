package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// budget is the read-mostly state shared by every query: the static prompt and
// the maximum query length derived from it. It is replaced wholesale, never
// mutated.
type budget struct {
	static         Encoding
	maxQueryLength int
}

// Model coordinates queries against an Engine: it owns the token budget and
// the static prompt, and turns engine generations into FragmentStreams.
type Model struct {
	engine Engine
	cfg    ModelConfig
	admit  *admitter

	mu     sync.Mutex // serialises SetStaticPrompt
	budget atomic.Pointer[budget]
}

// NewModel constructs a Model with an empty static prompt. It fails when the
// context and generation lengths leave less room than MinQueryLength.
func NewModel(engine Engine, cfg ModelConfig) (*Model, error) {
	if engine == nil {
		return nil, errors.New("chat: nil engine")
	}
	cfg = cfg.withDefaults()
	maxQuery := cfg.MaxContextLength - cfg.MaxGenerationLength
	if maxQuery < cfg.MinQueryLength {
		return nil, queryLengthError{min: cfg.MinQueryLength, max: maxQuery}
	}
	m := &Model{
		engine: engine,
		cfg:    cfg,
		admit:  newAdmitter(cfg.MaxInflight, cfg.MaxQueue, cfg.QueueWait),
	}
	m.budget.Store(&budget{maxQueryLength: maxQuery})
	return m, nil
}

// MaxQueryLength is the largest encoded query accepted.
func (m *Model) MaxQueryLength() int { return m.budget.Load().maxQueryLength }

// StaticPromptLength is the number of tokens in the current static prompt.
func (m *Model) StaticPromptLength() int { return m.budget.Load().static.Len() }

// SetStaticPrompt encodes a fixed user/assistant exchange and prepends it to
// every subsequent query. It returns false, leaving the previous prompt and
// budget in place, when the new prompt would push the maximum query length
// below the minimum.
func (m *Model) SetStaticPrompt(ctx context.Context, user, assistant string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	static, err := m.engine.Encode(ctx, []Message{
		{Role: RoleUser, Content: user},
		{Role: RoleAssistant, Content: assistant},
	})
	if err != nil {
		return false, fmt.Errorf("encode static prompt: %w", err)
	}
	maxQuery := m.cfg.MaxContextLength - m.cfg.MaxGenerationLength - static.Len()
	if maxQuery < m.cfg.MinQueryLength {
		m.cfg.Publisher.Publish(Event{Name: "static_prompt_rejected", Fields: map[string]any{
			"tokens": static.Len(), "max_query_length": maxQuery,
		}})
		return false, nil
	}
	m.budget.Store(&budget{static: static, maxQueryLength: maxQuery})
	m.cfg.Publisher.Publish(Event{Name: "static_prompt_set", Fields: map[string]any{
		"tokens": static.Len(), "max_query_length": maxQuery,
	}})
	return true, nil
}

// Query encodes messages, checks them against the token budget and starts a
// generation. It returns ErrRejected when the messages do not fit, an
// invalid-input error for malformed messages, and otherwise a stream the
// caller must drain or Close. Generation stops as soon as signal is set or ctx
// is done.
func (m *Model) Query(ctx context.Context, messages []Message, signal *Signal) (*FragmentStream, error) {
	if err := validateMessages(messages); err != nil {
		return nil, err
	}
	if signal == nil {
		signal = NewSignal()
	}
	prompt, err := m.engine.Encode(ctx, messages)
	if err != nil {
		if ctx.Err() != nil || IsEngineUnavailable(err) {
			return nil, err
		}
		return nil, ErrInvalidInput("encode messages: " + err.Error())
	}
	b := m.budget.Load()
	if prompt.Len() > b.maxQueryLength {
		m.cfg.Publisher.Publish(Event{Name: "query_rejected", Fields: map[string]any{
			"tokens": prompt.Len(), "max_query_length": b.maxQueryLength,
		}})
		return nil, ErrRejected
	}

	release, err := m.admit.acquire(ctx)
	if err != nil {
		return nil, err
	}
	gen, err := m.engine.Generate(ctx, prompt, b.static, m.cfg.MaxGenerationLength)
	if err != nil {
		release()
		return nil, fmt.Errorf("generate: %w", err)
	}

	id := uuid.NewString()
	m.cfg.Publisher.Publish(Event{Name: "generation_start", Fields: map[string]any{
		"id": id, "prompt_tokens": prompt.Len(),
	}})
	return newFragmentStream(ctx, m.engine, gen, signal, func(outcome Outcome, fragments int) {
		release()
		m.cfg.Publisher.Publish(Event{Name: "generation_end", Fields: map[string]any{
			"id": id, "outcome": string(outcome), "fragments": fragments,
		}})
	}), nil
}

// Close releases the engine.
func (m *Model) Close() error { return m.engine.Close() }
