// Package config loads service configuration from a file, LLMAPI_*
// environment variables and built-in defaults, in that order of precedence
// (environment wins over file).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"llmapi/internal/common/fsutil"
)

// Engine names accepted by Config.Engine.
const (
	EngineLlama  = "llama"
	EngineRemote = "remote"
	EngineStub   = "stub"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by WithDefaults.
type Config struct {
	Addr     string `json:"addr" yaml:"addr" toml:"addr"`
	AppName  string `json:"app_name" yaml:"app_name" toml:"app_name"`
	RootPath string `json:"root_path" yaml:"root_path" toml:"root_path"`

	Engine       string `json:"engine" yaml:"engine" toml:"engine"`
	ModelPath    string `json:"model_path" yaml:"model_path" toml:"model_path"`
	ModelID      string `json:"model_id" yaml:"model_id" toml:"model_id"`
	RemoteURL    string `json:"remote_url" yaml:"remote_url" toml:"remote_url"`
	RemoteAPIKey string `json:"remote_api_key" yaml:"remote_api_key" toml:"remote_api_key"`

	// LlamaServerBin, when set with an empty RemoteURL, makes the remote
	// engine spawn its own llama-server for ModelPath.
	LlamaServerBin  string   `json:"llama_server_bin" yaml:"llama_server_bin" toml:"llama_server_bin"`
	LlamaServerArgs []string `json:"llama_server_args" yaml:"llama_server_args" toml:"llama_server_args"`

	Threads   int `json:"threads" yaml:"threads" toml:"threads"`
	GPULayers int `json:"gpu_layers" yaml:"gpu_layers" toml:"gpu_layers"`

	// Sampling; zero values keep the engine's defaults. TopK and
	// RepeatPenalty apply to the llama engine only.
	Temperature   float32 `json:"temperature" yaml:"temperature" toml:"temperature"`
	TopP          float32 `json:"top_p" yaml:"top_p" toml:"top_p"`
	TopK          int     `json:"top_k" yaml:"top_k" toml:"top_k"`
	RepeatPenalty float32 `json:"repeat_penalty" yaml:"repeat_penalty" toml:"repeat_penalty"`
	Seed          int     `json:"seed" yaml:"seed" toml:"seed"`

	MinQueryLength        int    `json:"min_query_length" yaml:"min_query_length" toml:"min_query_length"`
	MaxContextLength      int    `json:"max_context_length" yaml:"max_context_length" toml:"max_context_length"`
	MaxGenerationLength   int    `json:"max_generation_length" yaml:"max_generation_length" toml:"max_generation_length"`
	StaticUserPrompt      string `json:"static_user_prompt" yaml:"static_user_prompt" toml:"static_user_prompt"`
	StaticAssistantPrompt string `json:"static_assistant_prompt" yaml:"static_assistant_prompt" toml:"static_assistant_prompt"`

	MaxInflight  int      `json:"max_inflight" yaml:"max_inflight" toml:"max_inflight"`
	MaxQueue     int      `json:"max_queue" yaml:"max_queue" toml:"max_queue"`
	QueueWait    Duration `json:"queue_wait" yaml:"queue_wait" toml:"queue_wait"`
	MaxBodyBytes int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`

	CORSEnabled        bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSAllowedOrigins []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins" toml:"cors_allowed_origins"`
	CORSAllowedMethods []string `json:"cors_allowed_methods" yaml:"cors_allowed_methods" toml:"cors_allowed_methods"`
	CORSAllowedHeaders []string `json:"cors_allowed_headers" yaml:"cors_allowed_headers" toml:"cors_allowed_headers"`

	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`

	ConsulAddr           string `json:"consul_addr" yaml:"consul_addr" toml:"consul_addr"`
	ConsulToken          string `json:"consul_token" yaml:"consul_token" toml:"consul_token"`
	ConsulServiceAddress string `json:"consul_service_address" yaml:"consul_service_address" toml:"consul_service_address"`

	ShutdownTimeout Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

// Duration is a time.Duration that reads and writes as a Go duration string
// ("30s", "1m30s") in every supported file format.
type Duration time.Duration

func (d *Duration) UnmarshalText(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(time.Duration(d).String()), nil }

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	path, err := fsutil.ExpandHome(path)
	if err != nil {
		return cfg, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Resolve loads path (optional), applies environment overrides and defaults,
// and validates the result.
func Resolve(path string) (Config, error) {
	var cfg Config
	if path != "" {
		c, err := Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = c
	}
	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
