package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"llmapi/internal/chat"
)

// fakeServer mimics the llama-server endpoints the engine uses.
type fakeServer struct {
	chunks    []string
	finish    string
	lastBody  atomic.Value
	tokenizes atomic.Int64
}

func (f *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/tokenize", func(w http.ResponseWriter, r *http.Request) {
		f.tokenizes.Add(1)
		var req tokenizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		ids := make([]int, len(strings.Fields(req.Content)))
		for i := range ids {
			ids[i] = i + 1
		}
		_ = json.NewEncoder(w).Encode(tokenizeResponse{Tokens: ids})
	})
	mux.HandleFunc("/v1/completions", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		f.lastBody.Store(string(b))
		w.Header().Set("Content-Type", "text/event-stream")
		fl := w.(http.Flusher)
		for _, c := range f.chunks {
			fmt.Fprintf(w, "data: {\"object\":\"text_completion\",\"choices\":[{\"index\":0,\"text\":%q,\"finish_reason\":\"\"}]}\n\n", c)
			fl.Flush()
		}
		fmt.Fprintf(w, "data: {\"object\":\"text_completion\",\"choices\":[{\"index\":0,\"text\":\"\",\"finish_reason\":%q}]}\n\n", f.finish)
		fmt.Fprint(w, "data: [DONE]\n\n")
		fl.Flush()
	})
	return mux
}

func newEngine(t *testing.T, f *fakeServer) *Engine {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	e, err := New(context.Background(), Config{BaseURL: srv.URL + "/", Model: "llama3", HealthTimeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestEncodeUsesServerTokenizer(t *testing.T) {
	f := &fakeServer{}
	e := newEngine(t, f)
	enc, err := e.Encode(context.Background(), []chat.Message{{Role: chat.RoleUser, Content: "how are you"}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if enc.Len() != len(strings.Fields(enc.Text)) {
		t.Fatalf("token count %d does not match text %q", enc.Len(), enc.Text)
	}
	if f.tokenizes.Load() != 1 {
		t.Fatalf("expected one tokenize call, got %d", f.tokenizes.Load())
	}
}

func TestGenerateStreamsFragments(t *testing.T) {
	f := &fakeServer{chunks: []string{"Hel", "lo"}, finish: "stop"}
	e := newEngine(t, f)
	static := chat.Encoding{Text: "STATIC"}
	prompt := chat.Encoding{Text: "PROMPT"}
	g, err := e.Generate(context.Background(), prompt, static, 16)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	defer g.Close()
	var got []string
	for {
		step, err := g.Recv()
		if err == io.EOF || step.Last {
			break
		}
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		got = append(got, e.Decode(step))
	}
	if strings.Join(got, "") != "Hello" {
		t.Fatalf("got %q", got)
	}
	body, _ := f.lastBody.Load().(string)
	var req map[string]any
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("request body: %v", err)
	}
	if req["prompt"] != "STATICPROMPT" {
		t.Fatalf("prompt = %v", req["prompt"])
	}
	if req["max_tokens"] != float64(16) || req["stream"] != true {
		t.Fatalf("unexpected request: %v", req)
	}
}

func TestGenerateForwardsSampling(t *testing.T) {
	f := &fakeServer{finish: "stop"}
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	e, err := New(context.Background(), Config{BaseURL: srv.URL, Temperature: 0.5, TopP: 0.25, Seed: 42, HealthTimeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()
	g, err := e.Generate(context.Background(), chat.Encoding{Text: "p"}, chat.Encoding{}, 4)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	g.Close()
	body, _ := f.lastBody.Load().(string)
	var req map[string]any
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("request body: %v", err)
	}
	if req["temperature"] != 0.5 || req["top_p"] != 0.25 || req["seed"] != float64(42) {
		t.Fatalf("sampling not forwarded: %v", req)
	}
}

func TestGenerateThroughModel(t *testing.T) {
	f := &fakeServer{chunks: []string{"a", "b", "c"}, finish: "length"}
	e := newEngine(t, f)
	m, err := chat.NewModel(e, chat.ModelConfig{MinQueryLength: 1, MaxContextLength: 256, MaxGenerationLength: 8})
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	s, err := m.Query(context.Background(), []chat.Message{{Role: chat.RoleUser, Content: "hi"}}, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	res, err := chat.Drain(s)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if res.Text != "abc" || res.Fragments != 3 {
		t.Fatalf("got %+v", res)
	}
}

func TestNewFailsWhenUnhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	_, err := New(context.Background(), Config{BaseURL: srv.URL, HealthTimeout: 300 * time.Millisecond})
	if !chat.IsEngineUnavailable(err) {
		t.Fatalf("expected engine unavailable, got %v", err)
	}
}

func TestNewRequiresURL(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

func TestTokenizeUnreachable(t *testing.T) {
	f := &fakeServer{}
	srv := httptest.NewServer(f.handler())
	e, err := New(context.Background(), Config{BaseURL: srv.URL, HealthTimeout: time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	srv.Close()
	_, err = e.Encode(context.Background(), []chat.Message{{Role: chat.RoleUser, Content: "x"}})
	if !chat.IsEngineUnavailable(err) {
		t.Fatalf("expected engine unavailable, got %v", err)
	}
}
