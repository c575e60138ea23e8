//go:build llama

package llama

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"

	"llmapi/internal/chat"
)

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = true

// Engine owns one loaded model. go-llama.cpp keeps a single token callback
// per model, so generations are serialised through slot. Tokenisation only
// reads the vocabulary and takes tok instead, so Encode never waits behind a
// running generation; admission and queue_wait bound the wait for slot.
type Engine struct {
	model *llama.LLama
	cfg   Config
	slot  chan struct{}
	tok   sync.Mutex
}

var _ chat.Engine = (*Engine)(nil)

// New loads the model at modelPath.
func New(modelPath string, opts ...Option) (*Engine, error) {
	cfg := newConfig(modelPath, opts...)
	if strings.TrimSpace(cfg.ModelPath) == "" {
		return nil, errors.New("model path is empty")
	}
	mo := []llama.ModelOption{}
	if cfg.ContextSize > 0 {
		mo = append(mo, llama.SetContext(cfg.ContextSize))
	}
	if cfg.GPULayers > 0 {
		mo = append(mo, llama.SetGPULayers(cfg.GPULayers))
	}
	m, err := llama.New(cfg.ModelPath, mo...)
	if err != nil {
		return nil, err
	}
	return &Engine{model: m, cfg: cfg, slot: make(chan struct{}, 1)}, nil
}

func (e *Engine) acquire(ctx context.Context) error {
	select {
	case e.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) release() { <-e.slot }

func (e *Engine) Encode(ctx context.Context, messages []chat.Message) (chat.Encoding, error) {
	if e.model == nil {
		return chat.Encoding{}, chat.ErrEngineUnavailable("llama model not initialized")
	}
	if err := ctx.Err(); err != nil {
		return chat.Encoding{}, err
	}
	text := chat.RenderPrompt(messages)
	e.tok.Lock()
	_, ids, err := e.model.TokenizeString(text, e.predictOptions(0)...)
	e.tok.Unlock()
	if err != nil {
		return chat.Encoding{}, err
	}
	tokens := make([]int, len(ids))
	for i, id := range ids {
		tokens[i] = int(id)
	}
	return chat.Encoding{Text: text, Tokens: tokens}, nil
}

func (e *Engine) Generate(ctx context.Context, prompt, static chat.Encoding, maxLength int) (chat.Generation, error) {
	if e.model == nil {
		return nil, chat.ErrEngineUnavailable("llama model not initialized")
	}
	if err := e.acquire(ctx); err != nil {
		return nil, err
	}
	g := &generation{
		steps: make(chan string),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	// Bridge the push-style token callback to a pull-style Recv. The callback
	// blocks until the consumer asks for the next token or the handle closes.
	e.model.SetTokenCallback(func(tok string) bool {
		select {
		case g.steps <- tok:
			return true
		case <-g.stop:
			return false
		case <-ctx.Done():
			return false
		}
	})
	po := e.predictOptions(maxLength)
	text := static.Text + prompt.Text
	go func() {
		defer close(g.done)
		_, err := e.model.Predict(text, po...)
		if err != nil && ctx.Err() != nil {
			err = ctx.Err()
		}
		g.err = err
		close(g.steps)
	}()
	g.release = func() {
		e.model.SetTokenCallback(nil)
		e.release()
	}
	return g, nil
}

func (e *Engine) Decode(step chat.Step) string { return step.Text }

func (e *Engine) Close() error {
	if e.model != nil {
		e.model.Free()
		e.model = nil
	}
	return nil
}

type generation struct {
	steps   chan string
	stop    chan struct{}
	done    chan struct{}
	err     error
	release func()
	once    sync.Once
}

func (g *generation) Recv() (chat.Step, error) {
	tok, ok := <-g.steps
	if !ok {
		if g.err != nil {
			return chat.Step{}, g.err
		}
		return chat.Step{}, io.EOF
	}
	return chat.Step{Text: tok}, nil
}

func (g *generation) Close() error {
	g.once.Do(func() {
		close(g.stop)
		<-g.done
		g.release()
	})
	return nil
}

// helpers
func zn(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func zf(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}

// predictOptions maps the engine config onto go-llama.cpp options.
func (e *Engine) predictOptions(maxTokens int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetThreads(max(1, e.cfg.Threads)),
		llama.SetTopP(zf(e.cfg.TopP, llama.DefaultOptions.TopP)),
		llama.SetTopK(zn(e.cfg.TopK, llama.DefaultOptions.TopK)),
		llama.SetTemperature(zf(e.cfg.Temperature, llama.DefaultOptions.Temperature)),
		llama.SetPenalty(zf(e.cfg.RepeatPenalty, llama.DefaultOptions.Penalty)),
		llama.SetStopWords(chat.EndOfTurn),
	}
	if maxTokens > 0 {
		po = append(po, llama.SetTokens(maxTokens))
	}
	if e.cfg.Seed != 0 {
		po = append(po, llama.SetSeed(e.cfg.Seed))
	}
	return po
}
