// Package remote drives a llama.cpp server (llama-server) over HTTP.
//
// Tokenisation goes through the server's native /tokenize endpoint so the
// token budget is measured with the model's own vocabulary. Generation uses
// the OpenAI-compatible /v1/completions endpoint in streaming mode.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"llmapi/internal/chat"
)

// Config configures the remote engine.
type Config struct {
	// BaseURL of the llama-server, without the /v1 suffix.
	BaseURL string
	// APIKey is sent as a bearer token when set.
	APIKey string
	// Model is passed through to the completions endpoint.
	Model string
	// ConnectTimeout bounds dialing; HealthTimeout bounds the startup wait.
	ConnectTimeout time.Duration
	HealthTimeout  time.Duration
	// Sampling settings are forwarded when non-zero.
	Temperature float32
	TopP        float32
	Seed        int
}

// Engine implements chat.Engine against a running llama-server.
type Engine struct {
	cfg    Config
	base   string
	http   *http.Client
	client *openai.Client
	proc   *Process
}

var _ chat.Engine = (*Engine)(nil)

// New builds the engine and waits for the server to report healthy.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("remote url is empty")
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.HealthTimeout <= 0 {
		cfg.HealthTimeout = 15 * time.Second
	}
	if cfg.Model == "" {
		cfg.Model = "default"
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	// No client-wide timeout: generations are long-lived streams bounded by
	// the request context.
	cli := &http.Client{Transport: tr}

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = base + "/v1"
	oc.HTTPClient = cli

	e := &Engine{cfg: cfg, base: base, http: cli, client: openai.NewClientWithConfig(oc)}
	if err := e.waitForHealth(ctx, cfg.HealthTimeout); err != nil {
		return nil, chat.ErrEngineUnavailable(err.Error())
	}
	return e, nil
}

func (e *Engine) waitForHealth(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	for {
		if err := e.checkHealth(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("llama-server health check timeout on %s: %w", e.base, ctx.Err())
		case <-time.After(200 * time.Millisecond):
		}
	}
}

func (e *Engine) checkHealth(ctx context.Context) error {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, e.base+"/health", nil)
	resp, err := e.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("health status %d", resp.StatusCode)
	}
	return nil
}

type tokenizeRequest struct {
	Content    string `json:"content"`
	AddSpecial bool   `json:"add_special"`
}

type tokenizeResponse struct {
	Tokens []int `json:"tokens"`
}

func (e *Engine) Encode(ctx context.Context, messages []chat.Message) (chat.Encoding, error) {
	text := chat.RenderPrompt(messages)
	tokens, err := e.tokenize(ctx, text)
	if err != nil {
		return chat.Encoding{}, err
	}
	return chat.Encoding{Text: text, Tokens: tokens}, nil
}

func (e *Engine) tokenize(ctx context.Context, text string) ([]int, error) {
	body, err := json.Marshal(tokenizeRequest{Content: text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.base+"/tokenize", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	}
	resp, err := e.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, chat.ErrEngineUnavailable(fmt.Sprintf("tokenize: %v", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if resp.StatusCode >= 500 {
			return nil, chat.ErrEngineUnavailable(fmt.Sprintf("tokenize status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))))
		}
		return nil, fmt.Errorf("tokenize status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var out tokenizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("tokenize: decode: %w", err)
	}
	return out.Tokens, nil
}

func (e *Engine) Generate(ctx context.Context, prompt, static chat.Encoding, maxLength int) (chat.Generation, error) {
	req := openai.CompletionRequest{
		Model:     e.cfg.Model,
		Prompt:    static.Text + prompt.Text,
		MaxTokens: maxLength,
		Stop:      []string{chat.EndOfTurn},
		Stream:    true,
	}
	if e.cfg.Temperature > 0 {
		req.Temperature = e.cfg.Temperature
	}
	if e.cfg.TopP > 0 {
		req.TopP = e.cfg.TopP
	}
	if e.cfg.Seed != 0 {
		seed := e.cfg.Seed
		req.Seed = &seed
	}
	stream, err := e.client.CreateCompletionStream(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var apiErr *openai.APIError
		var reqErr *openai.RequestError
		if errors.As(err, &apiErr) || errors.As(err, &reqErr) {
			return nil, err
		}
		return nil, chat.ErrEngineUnavailable(fmt.Sprintf("completions: %v", err))
	}
	return &generation{stream: stream}, nil
}

func (e *Engine) Decode(step chat.Step) string { return step.Text }

// Close drops idle connections and stops the server if this engine spawned it.
func (e *Engine) Close() error {
	e.http.CloseIdleConnections()
	if e.proc != nil {
		return e.proc.Stop()
	}
	return nil
}

type generation struct {
	stream *openai.CompletionStream
	// finished is set after a chunk carrying a finish reason; the next Recv
	// reports the end without touching the stream.
	finished bool
	once     sync.Once
}

func (g *generation) Recv() (chat.Step, error) {
	if g.finished {
		return chat.Step{Last: true}, nil
	}
	for {
		resp, err := g.stream.Recv()
		if err != nil {
			return chat.Step{}, err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		c := resp.Choices[0]
		if c.FinishReason != "" {
			g.finished = true
			if c.Text == "" {
				return chat.Step{Last: true}, nil
			}
		}
		if c.Text == "" {
			continue
		}
		return chat.Step{Text: c.Text}, nil
	}
}

func (g *generation) Close() error {
	var err error
	g.once.Do(func() { err = g.stream.Close() })
	return err
}
