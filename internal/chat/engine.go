package chat

import "context"

// Engine abstracts the model runtime used by the Model. Concrete
// implementations (llama.cpp in-process, a remote llama-server, a stub) live
// under internal/engine. Implementations must be safe for concurrent use and
// hand out an independent Generation per call.
type Engine interface {
	// Encode renders messages with the chat template, appends the assistant
	// generation prompt and tokenises the result.
	Encode(ctx context.Context, messages []Message) (Encoding, error)
	// Generate starts producing tokens for prompt, prefixed by static.
	// maxLength caps the number of generated tokens. The caller owns the
	// returned Generation and must Close it.
	Generate(ctx context.Context, prompt, static Encoding, maxLength int) (Generation, error)
	// Decode turns one generated step into text.
	Decode(step Step) string
	// Close releases the runtime.
	Close() error
}

// Encoding is a rendered prompt and its token ids.
type Encoding struct {
	Text   string
	Tokens []int
}

// Len is the number of tokens, the unit the token budget is measured in.
func (e Encoding) Len() int { return len(e.Tokens) }

// Step is one unit produced by a Generation.
type Step struct {
	Token int
	Text  string
	// Last marks the engine's end-of-sequence step; it carries no text.
	Last bool
}

// Generation is a lazy, finite, non-restartable sequence of steps. Recv
// returns io.EOF once nothing more will be produced.
type Generation interface {
	Recv() (Step, error)
	// Close releases the handle. It must be safe to call more than once and
	// must stop any work still in progress.
	Close() error
}
