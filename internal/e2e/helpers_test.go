package e2e

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"llmapi/internal/chat"
	"llmapi/internal/httpapi"
	"llmapi/internal/registry"
)

// createTempModelsDir creates a temporary directory populated with empty .gguf files
// and returns the directory path.
func createTempModelsDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.WriteFile(p, []byte(""), 0o644); err != nil {
			t.Fatalf("write temp model %s: %v", p, err)
		}
	}
	return dir
}

// newServer wires engine into a Model and serves it the way the binary does.
func newServer(t *testing.T, eng chat.Engine, cfg chat.ModelConfig) (*httptest.Server, *chat.MemoryPublisher) {
	t.Helper()
	events := chat.NewMemoryPublisher()
	cfg.Publisher = chat.Publishers{events, httpapi.MetricsPublisher{}}
	m, err := chat.NewModel(eng, cfg)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	ok, err := m.SetStaticPrompt(context.Background(), "Hello, who are you?", "I am a helpful assistant.")
	if err != nil || !ok {
		t.Fatalf("static prompt ok=%v err=%v", ok, err)
	}
	t.Cleanup(func() { _ = m.Close() })
	svc := httpapi.NewModelService(m, "e2e")
	svc.SetReady(true)
	srv := httptest.NewServer(httpapi.NewMux(svc))
	t.Cleanup(srv.Close)
	return srv, events
}

// resolveModel exercises the same lookup the binary performs for model_path.
func resolveModel(t *testing.T, dir, id string) string {
	t.Helper()
	m, err := registry.Resolve(dir, id)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return m.Path
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewBufferString(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

// sseData returns the data payloads of an SSE body with the single leading
// space after "data:" removed, as EventSource clients do.
func sseData(body []byte) []string {
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		if d, ok := strings.CutPrefix(sc.Text(), "data:"); ok {
			out = append(out, strings.TrimPrefix(d, " "))
		}
	}
	return out
}
