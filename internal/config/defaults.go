package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Defaults applied by WithDefaults.
const (
	DefaultAddr                = ":8000"
	DefaultAppName             = "llmapi"
	DefaultMinQueryLength      = 64
	DefaultMaxContextLength    = 131072
	DefaultMaxGenerationLength = 1024
	DefaultMaxBodyBytes        = 1 << 20
	DefaultQueueWait           = 30 * time.Second
	DefaultShutdownTimeout     = 5 * time.Second
	DefaultStaticUserPrompt    = "Hello, who are you?"
	DefaultStaticAssistant     = "I am a helpful assistant. I answer questions concisely and accurately."
)

// WithDefaults fills unset fields.
func (c Config) WithDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.AppName == "" {
		c.AppName = DefaultAppName
	}
	c.RootPath = strings.TrimRight(c.RootPath, "/")
	if c.Engine == "" {
		c.Engine = EngineLlama
	}
	c.Engine = strings.ToLower(c.Engine)
	if c.MinQueryLength <= 0 {
		c.MinQueryLength = DefaultMinQueryLength
	}
	if c.MaxContextLength <= 0 {
		c.MaxContextLength = DefaultMaxContextLength
	}
	if c.MaxGenerationLength <= 0 {
		c.MaxGenerationLength = DefaultMaxGenerationLength
	}
	if c.StaticUserPrompt == "" {
		c.StaticUserPrompt = DefaultStaticUserPrompt
	}
	if c.StaticAssistantPrompt == "" {
		c.StaticAssistantPrompt = DefaultStaticAssistant
	}
	if c.QueueWait <= 0 {
		c.QueueWait = Duration(DefaultQueueWait)
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = Duration(DefaultShutdownTimeout)
	}
	return c
}

// Validate reports configuration that cannot start a service.
func (c Config) Validate() error {
	var errs []error
	switch c.Engine {
	case EngineLlama:
		if strings.TrimSpace(c.ModelPath) == "" {
			errs = append(errs, errors.New("model_path is required for the llama engine"))
		}
	case EngineRemote:
		switch {
		case strings.TrimSpace(c.RemoteURL) != "":
		case strings.TrimSpace(c.LlamaServerBin) != "":
			if strings.TrimSpace(c.ModelPath) == "" {
				errs = append(errs, errors.New("model_path is required to spawn llama_server_bin"))
			}
		default:
			errs = append(errs, errors.New("remote_url (or llama_server_bin with model_path) is required for the remote engine"))
		}
	case EngineStub:
	default:
		errs = append(errs, fmt.Errorf("unknown engine %q (want llama, remote or stub)", c.Engine))
	}
	if c.MaxContextLength-c.MaxGenerationLength < c.MinQueryLength {
		errs = append(errs, fmt.Errorf("max_context_length (%d) - max_generation_length (%d) is below min_query_length (%d)",
			c.MaxContextLength, c.MaxGenerationLength, c.MinQueryLength))
	}
	if c.Temperature < 0 || c.TopP < 0 || c.TopP > 1 || c.TopK < 0 || c.RepeatPenalty < 0 {
		errs = append(errs, errors.New("temperature, top_k and repeat_penalty must not be negative; top_p must be within [0, 1]"))
	}
	if c.MaxInflight < 0 || c.MaxQueue < 0 {
		errs = append(errs, errors.New("max_inflight and max_queue must not be negative"))
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("unknown log_format %q (want json or console)", c.LogFormat))
	}
	if c.RootPath != "" && !strings.HasPrefix(c.RootPath, "/") {
		errs = append(errs, fmt.Errorf("root_path %q must start with /", c.RootPath))
	}
	if c.ConsulAddr != "" && strings.TrimSpace(c.ConsulServiceAddress) == "" {
		errs = append(errs, errors.New("consul_service_address is required when consul_addr is set"))
	}
	return errors.Join(errs...)
}
