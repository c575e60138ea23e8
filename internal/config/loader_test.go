package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: :9999\nengine: remote\nremote_url: http://127.0.0.1:8080\nmax_context_length: 4096\nqueue_wait: 2s\ncors_allowed_origins: [\"https://a\", \"https://b\"]\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.Engine != "remote" || cfg.RemoteURL != "http://127.0.0.1:8080" || cfg.MaxContextLength != 4096 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.QueueWait.Std() != 2*time.Second {
		t.Fatalf("queue_wait = %v", cfg.QueueWait.Std())
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("origins = %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","engine":"stub","min_query_length":8,"shutdown_timeout":"750ms","static_user_prompt":"hi"}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.Engine != "stub" || cfg.MinQueryLength != 8 || cfg.StaticUserPrompt != "hi" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.ShutdownTimeout.Std() != 750*time.Millisecond {
		t.Fatalf("shutdown_timeout = %v", cfg.ShutdownTimeout.Std())
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\nengine=\"llama\"\nmodel_path=\"/x/m.gguf\"\nthreads=4\nqueue_wait=\"1m\"\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.Engine != "llama" || cfg.ModelPath != "/x/m.gguf" || cfg.Threads != 4 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.QueueWait.Std() != time.Minute {
		t.Fatalf("queue_wait = %v", cfg.QueueWait.Std())
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
}

func TestDurationRejectsGarbage(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"queue_wait":"soon"}`)
	if _, err := Load(p); err == nil {
		t.Fatalf("expected duration parse error")
	}
}
