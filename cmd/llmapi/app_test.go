package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"llmapi/internal/config"
	"llmapi/internal/engine/llama"
	"llmapi/internal/httpapi"
	"llmapi/pkg/types"
)

func stubConfig(mut ...func(*config.Config)) config.Config {
	c := config.Config{
		Engine:                config.EngineStub,
		Addr:                  "127.0.0.1:0",
		MinQueryLength:        4,
		MaxContextLength:      64,
		MaxGenerationLength:   16,
		StaticUserPrompt:      "hi",
		StaticAssistantPrompt: "hello",
	}
	for _, m := range mut {
		m(&c)
	}
	return c.WithDefaults()
}

func newTestApp(t *testing.T, cfg config.Config) *app {
	t.Helper()
	a, err := setupWith(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestSetupStubEngine(t *testing.T) {
	a := newTestApp(t, stubConfig())
	if !a.svc.Ready() {
		t.Fatalf("service not ready after setup")
	}
	st := a.svc.Status()
	if st.Engine != "stub" || st.StaticPromptTokens == 0 || st.MaxQueryLength != 48-st.StaticPromptTokens {
		t.Fatalf("status=%+v", st)
	}
}

func TestSetupRejectsOversizedStaticPrompt(t *testing.T) {
	cfg := stubConfig(func(c *config.Config) {
		c.StaticUserPrompt = strings.Repeat("word ", 60)
	})
	if _, err := setupWith(context.Background(), cfg, zerolog.Nop()); err == nil || !strings.Contains(err.Error(), "min_query_length") {
		t.Fatalf("expected static prompt error, got %v", err)
	}
}

func TestOpenEngineLlamaNeedsModel(t *testing.T) {
	cfg := stubConfig(func(c *config.Config) {
		c.Engine = config.EngineLlama
		c.ModelPath = filepath.Join(t.TempDir(), "missing.gguf")
	})
	if _, err := openEngine(context.Background(), cfg, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for missing model file")
	}
	cfg.Engine = config.EngineRemote
	cfg.LlamaServerBin = "/nonexistent/llama-server"
	if _, err := openEngine(context.Background(), cfg, zerolog.Nop()); err == nil {
		t.Fatalf("expected error spawning without a model file")
	}
}

func TestSamplingReachesEngines(t *testing.T) {
	cfg := config.Config{MaxContextLength: 2048, Temperature: 0.5, TopP: 0.25, TopK: 40, RepeatPenalty: 1.5, Seed: 7}
	rc := remoteConfig(cfg)
	if rc.Temperature != 0.5 || rc.TopP != 0.25 || rc.Seed != 7 {
		t.Fatalf("remote config = %+v", rc)
	}
	var lc llama.Config
	for _, o := range llamaOptions(cfg) {
		o(&lc)
	}
	if lc.ContextSize != 2048 || lc.Temperature != 0.5 || lc.TopP != 0.25 || lc.TopK != 40 || lc.RepeatPenalty != 1.5 || lc.Seed != 7 {
		t.Fatalf("llama config = %+v", lc)
	}
}

func TestHandlerServesChat(t *testing.T) {
	a := newTestApp(t, stubConfig(func(c *config.Config) { c.RootPath = "/api" }))
	t.Cleanup(func() { httpapi.SetRootPath("") })
	srv := httptest.NewServer(a.handler(context.Background()))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/chat", "application/json", strings.NewReader(`{"query":"Hello"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	var ans types.AnswerResponse
	if err := json.NewDecoder(resp.Body).Decode(&ans); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ans.Answer != "Hello from the stub engine." {
		t.Fatalf("answer=%q", ans.Answer)
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	a := newTestApp(t, stubConfig())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.serve(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("serve did not return after cancel")
	}
	if a.svc.Ready() {
		t.Fatalf("service still ready after shutdown")
	}
}

func TestServeListenError(t *testing.T) {
	a := newTestApp(t, stubConfig(func(c *config.Config) { c.Addr = "256.0.0.1:bad" }))
	if err := a.serve(context.Background()); err == nil {
		t.Fatalf("expected listen error")
	}
}

func TestRunBench(t *testing.T) {
	a := newTestApp(t, stubConfig())
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())
	if err := runBench(cmd, a.model, "Hello"); err != nil {
		t.Fatalf("bench: %v", err)
	}
	var b types.BenchmarkResponse
	if err := json.Unmarshal(out.Bytes(), &b); err != nil {
		t.Fatalf("decode %q: %v", out.String(), err)
	}
	if b.Response != "Hello from the stub engine." || b.Tokens != 5 {
		t.Fatalf("bench=%+v", b)
	}
}

func TestVersionCommand(t *testing.T) {
	root := rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if strings.TrimSpace(out.String()) != version {
		t.Fatalf("version output %q", out.String())
	}
}

func TestBenchCommandWithConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "llmapi.yaml")
	body := "engine: stub\nmin_query_length: 4\nmax_context_length: 64\nmax_generation_length: 16\nlog_level: error\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	root := rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"bench", "--config", path, "-q", "Hi there"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), `"tokens_per_second"`) {
		t.Fatalf("bench output %q", out.String())
	}
}

func TestLoadDotEnv(t *testing.T) {
	if err := loadDotEnv(filepath.Join(t.TempDir(), "none.env")); err != nil {
		t.Fatalf("missing file should be ignored: %v", err)
	}
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("LLMAPI_DOTENV_PROBE=from-file\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("LLMAPI_DOTENV_PROBE", "")
	os.Unsetenv("LLMAPI_DOTENV_PROBE")
	if err := loadDotEnv(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := os.Getenv("LLMAPI_DOTENV_PROBE"); got != "from-file" {
		t.Fatalf("LLMAPI_DOTENV_PROBE=%q", got)
	}
}
