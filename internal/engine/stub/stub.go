// Package stub provides a deterministic in-memory engine for development and
// tests. It tokenises on whitespace and generates a configured list of
// fragments.
package stub

import (
	"context"
	"errors"
	"hash/fnv"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"llmapi/internal/chat"
)

var errInjected = errors.New("stub: injected fault")

// DefaultReply is generated when Fragments is nil. A non-nil empty slice
// generates nothing.
var DefaultReply = []string{"Hello", " from", " the", " stub", " engine."}

// Engine is a chat.Engine with scripted output and optional fault injection.
type Engine struct {
	// Fragments are emitted in order by every generation.
	Fragments []string
	// Delay is slept before each fragment.
	Delay time.Duration
	// EncodeErr, GenerateErr are returned by Encode and Generate.
	EncodeErr   error
	GenerateErr error
	// FailAfter, when > 0, makes Recv return StepErr after that many fragments.
	FailAfter int
	StepErr   error

	open  atomic.Int64
	pulls atomic.Int64

	mu      sync.Mutex
	prompts []string
}

var _ chat.Engine = (*Engine)(nil)

// New returns an engine emitting fragments.
func New(fragments ...string) *Engine { return &Engine{Fragments: fragments} }

func (e *Engine) Encode(ctx context.Context, messages []chat.Message) (chat.Encoding, error) {
	if e.EncodeErr != nil {
		return chat.Encoding{}, e.EncodeErr
	}
	text := chat.RenderPrompt(messages)
	return chat.Encoding{Text: text, Tokens: Tokenize(text)}, nil
}

// Tokenize splits text on whitespace and hashes each word to an id.
func Tokenize(text string) []int {
	words := strings.Fields(text)
	ids := make([]int, len(words))
	for i, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		ids[i] = int(h.Sum32() & 0x7fffffff)
	}
	return ids
}

func (e *Engine) Generate(ctx context.Context, prompt, static chat.Encoding, maxLength int) (chat.Generation, error) {
	if e.GenerateErr != nil {
		return nil, e.GenerateErr
	}
	frags := e.Fragments
	if frags == nil {
		frags = DefaultReply
	}
	if maxLength > 0 && len(frags) > maxLength {
		frags = frags[:maxLength]
	}
	e.mu.Lock()
	e.prompts = append(e.prompts, static.Text+prompt.Text)
	e.mu.Unlock()
	e.open.Add(1)
	return &generation{e: e, ctx: ctx, frags: frags}, nil
}

func (e *Engine) Decode(step chat.Step) string { return step.Text }

func (e *Engine) Close() error { return nil }

// Open is the number of generations not yet closed.
func (e *Engine) Open() int { return int(e.open.Load()) }

// Pulls is the number of Recv calls made across all generations.
func (e *Engine) Pulls() int { return int(e.pulls.Load()) }

// Prompts returns the full prompt text (static prefix included) of each
// generation started so far.
func (e *Engine) Prompts() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.prompts...)
}

type generation struct {
	e      *Engine
	ctx    context.Context
	frags  []string
	next   int
	closed atomic.Bool
}

func (g *generation) Recv() (chat.Step, error) {
	g.e.pulls.Add(1)
	if g.closed.Load() {
		return chat.Step{}, io.ErrClosedPipe
	}
	if g.e.FailAfter > 0 && g.next >= g.e.FailAfter {
		if g.e.StepErr != nil {
			return chat.Step{}, g.e.StepErr
		}
		return chat.Step{}, errInjected
	}
	if g.next >= len(g.frags) {
		return chat.Step{Last: true}, nil
	}
	if g.e.Delay > 0 {
		t := time.NewTimer(g.e.Delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-g.ctx.Done():
			return chat.Step{}, g.ctx.Err()
		}
	}
	f := g.frags[g.next]
	g.next++
	return chat.Step{Token: g.next, Text: f}, nil
}

func (g *generation) Close() error {
	if g.closed.CompareAndSwap(false, true) {
		g.e.open.Add(-1)
	}
	return nil
}
