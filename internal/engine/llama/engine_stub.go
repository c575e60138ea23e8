//go:build !llama

package llama

import (
	"context"

	"llmapi/internal/chat"
)

// llamaBuilt indicates this binary was compiled without llama support.
var llamaBuilt = false

const notBuilt = "llama support not built (missing 'llama' build tag)"

// Engine is a placeholder that refuses to run inference without the 'llama'
// build tag. No mocked behaviour ships in production binaries.
type Engine struct{}

var _ chat.Engine = (*Engine)(nil)

// New fails fast: the llama runtime is not available in this build.
func New(modelPath string, opts ...Option) (*Engine, error) {
	return nil, chat.ErrEngineUnavailable(notBuilt)
}

func (e *Engine) Encode(ctx context.Context, messages []chat.Message) (chat.Encoding, error) {
	return chat.Encoding{}, chat.ErrEngineUnavailable(notBuilt)
}

func (e *Engine) Generate(ctx context.Context, prompt, static chat.Encoding, maxLength int) (chat.Generation, error) {
	return nil, chat.ErrEngineUnavailable(notBuilt)
}

func (e *Engine) Decode(step chat.Step) string { return step.Text }

func (e *Engine) Close() error { return nil }
