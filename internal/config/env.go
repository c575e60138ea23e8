package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EnvPrefix prefixes every environment override, e.g. LLMAPI_ADDR.
const EnvPrefix = "LLMAPI_"

// ApplyEnv overrides cfg with any LLMAPI_* variables that are set.
func ApplyEnv(cfg *Config) error {
	var err error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && err == nil {
			n, e := strconv.Atoi(v)
			if e != nil {
				err = fmt.Errorf("%s%s: %w", EnvPrefix, key, e)
				return
			}
			*dst = n
		}
	}
	flt := func(key string, dst *float32) {
		if v, ok := lookup(key); ok && err == nil {
			f, e := strconv.ParseFloat(v, 32)
			if e != nil {
				err = fmt.Errorf("%s%s: %w", EnvPrefix, key, e)
				return
			}
			*dst = float32(f)
		}
	}
	dur := func(key string, dst *Duration) {
		if v, ok := lookup(key); ok && err == nil {
			if e := dst.UnmarshalText([]byte(v)); e != nil {
				err = fmt.Errorf("%s%s: %w", EnvPrefix, key, e)
			}
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(key); ok {
			*dst = SplitCSV(v)
		}
	}

	str("ADDR", &cfg.Addr)
	str("APP_NAME", &cfg.AppName)
	str("ROOT_PATH", &cfg.RootPath)
	str("ENGINE", &cfg.Engine)
	str("MODEL_PATH", &cfg.ModelPath)
	str("MODEL_ID", &cfg.ModelID)
	str("REMOTE_URL", &cfg.RemoteURL)
	str("REMOTE_API_KEY", &cfg.RemoteAPIKey)
	str("LLAMA_SERVER_BIN", &cfg.LlamaServerBin)
	list("LLAMA_SERVER_ARGS", &cfg.LlamaServerArgs)
	num("THREADS", &cfg.Threads)
	num("GPU_LAYERS", &cfg.GPULayers)
	flt("TEMPERATURE", &cfg.Temperature)
	flt("TOP_P", &cfg.TopP)
	num("TOP_K", &cfg.TopK)
	flt("REPEAT_PENALTY", &cfg.RepeatPenalty)
	num("SEED", &cfg.Seed)
	num("MIN_QUERY_LENGTH", &cfg.MinQueryLength)
	num("MAX_CONTEXT_LENGTH", &cfg.MaxContextLength)
	num("MAX_GENERATION_LENGTH", &cfg.MaxGenerationLength)
	str("STATIC_USER_PROMPT", &cfg.StaticUserPrompt)
	str("STATIC_ASSISTANT_PROMPT", &cfg.StaticAssistantPrompt)
	num("MAX_INFLIGHT", &cfg.MaxInflight)
	num("MAX_QUEUE", &cfg.MaxQueue)
	dur("QUEUE_WAIT", &cfg.QueueWait)
	if v, ok := lookup("MAX_BODY_BYTES"); ok && err == nil {
		n, e := strconv.ParseInt(v, 10, 64)
		if e != nil {
			err = fmt.Errorf("%sMAX_BODY_BYTES: %w", EnvPrefix, e)
		}
		cfg.MaxBodyBytes = n
	}
	if v, ok := lookup("CORS_ENABLED"); ok {
		s := strings.ToLower(v)
		cfg.CORSEnabled = s == "1" || s == "true" || s == "yes"
	}
	list("CORS_ALLOWED_ORIGINS", &cfg.CORSAllowedOrigins)
	list("CORS_ALLOWED_METHODS", &cfg.CORSAllowedMethods)
	list("CORS_ALLOWED_HEADERS", &cfg.CORSAllowedHeaders)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)
	str("CONSUL_ADDR", &cfg.ConsulAddr)
	str("CONSUL_TOKEN", &cfg.ConsulToken)
	str("CONSUL_SERVICE_ADDRESS", &cfg.ConsulServiceAddress)
	dur("SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout)
	return err
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// SplitCSV splits a comma-separated list, trimming blanks and dropping empty
// items.
func SplitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
