package chat

import "llmapi/pkg/types"

// Status builds the budget snapshot returned by /status.
func (m *Model) Status() types.StatusResponse {
	b := m.budget.Load()
	return types.StatusResponse{
		MinQueryLength:      m.cfg.MinQueryLength,
		MaxContextLength:    m.cfg.MaxContextLength,
		MaxGenerationLength: m.cfg.MaxGenerationLength,
		StaticPromptTokens:  b.static.Len(),
		MaxQueryLength:      b.maxQueryLength,
		Inflight:            m.admit.inflight(),
		Queued:              m.admit.queued(),
		MaxInflight:         m.cfg.MaxInflight,
	}
}
