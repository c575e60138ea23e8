package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"llmapi/internal/chat"
	"llmapi/internal/engine/remote"
	"llmapi/pkg/types"
)

// TestLive_Haiku asks a real llama-server for a haiku through the full stack.
// Skips unless LLMAPI_E2E_LLAMA_SERVER points at a running llama-server.
func TestLive_Haiku(t *testing.T) {
	base := strings.TrimSpace(os.Getenv("LLMAPI_E2E_LLAMA_SERVER"))
	if base == "" {
		t.Skip("LLMAPI_E2E_LLAMA_SERVER not set; skipping live haiku test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	eng, err := remote.New(ctx, remote.Config{BaseURL: base})
	if err != nil {
		t.Fatalf("remote engine: %v", err)
	}
	srv, _ := newServer(t, eng, chat.ModelConfig{MinQueryLength: 64, MaxContextLength: 2048, MaxGenerationLength: 128})

	resp, body := httpPostJSON(t, srv.URL+"/v1/chat", `{"query":"Write a 3-line haiku about the ocean."}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/v1/chat status=%d body=%s", resp.StatusCode, body)
	}
	var ans types.AnswerResponse
	if err := json.Unmarshal(body, &ans); err != nil || strings.TrimSpace(ans.Answer) == "" {
		t.Fatalf("expected non-empty haiku, body=%s", body)
	}
	t.Logf("\n----- GENERATED HAIKU -----\n%s\n---------------------------\n", ans.Answer)
}
