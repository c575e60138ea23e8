package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"llmapi/internal/chat"
	"llmapi/internal/config"
	"llmapi/internal/engine/llama"
	"llmapi/internal/engine/remote"
	"llmapi/internal/engine/stub"
	"llmapi/internal/httpapi"
	"llmapi/internal/registry"
)

// app is a loaded model plus the service that exposes it.
type app struct {
	cfg   config.Config
	log   zerolog.Logger
	model *chat.Model
	svc   *httpapi.ModelService
}

func newLogger(cfg config.Config, out io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("log_level: %w", err)
	}
	if cfg.LogFormat == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Str("app", cfg.AppName).Logger(), nil
}

// openEngine builds the configured inference backend.
func openEngine(ctx context.Context, cfg config.Config, log zerolog.Logger) (chat.Engine, error) {
	switch cfg.Engine {
	case config.EngineStub:
		return stub.New(), nil
	case config.EngineRemote:
		rc := remoteConfig(cfg)
		var (
			e   *remote.Engine
			err error
		)
		if cfg.RemoteURL == "" && cfg.LlamaServerBin != "" {
			m, rerr := registry.Resolve(cfg.ModelPath, cfg.ModelID)
			if rerr != nil {
				return nil, rerr
			}
			e, err = remote.NewSpawned(ctx, remote.SpawnConfig{
				Bin:         cfg.LlamaServerBin,
				ModelPath:   m.Path,
				ContextSize: cfg.MaxContextLength,
				GPULayers:   cfg.GPULayers,
				Threads:     cfg.Threads,
				ExtraArgs:   cfg.LlamaServerArgs,
				Log:         log.With().Str("component", "llama-server").Logger(),
			}, rc)
		} else {
			e, err = remote.New(ctx, rc)
		}
		if err != nil {
			return nil, err
		}
		return e, nil
	case config.EngineLlama:
		m, err := registry.Resolve(cfg.ModelPath, cfg.ModelID)
		if err != nil {
			return nil, err
		}
		e, err := llama.New(m.Path, llamaOptions(cfg)...)
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown engine %q", cfg.Engine)
	}
}

func remoteConfig(cfg config.Config) remote.Config {
	return remote.Config{
		BaseURL:     cfg.RemoteURL,
		APIKey:      cfg.RemoteAPIKey,
		Model:       cfg.ModelID,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
		Seed:        cfg.Seed,
	}
}

func llamaOptions(cfg config.Config) []llama.Option {
	return []llama.Option{
		llama.WithContextSize(cfg.MaxContextLength),
		llama.WithThreads(cfg.Threads),
		llama.WithGPULayers(cfg.GPULayers),
		llama.WithTemperature(cfg.Temperature),
		llama.WithTopP(cfg.TopP),
		llama.WithTopK(cfg.TopK),
		llama.WithRepeatPenalty(cfg.RepeatPenalty),
		llama.WithSeed(cfg.Seed),
	}
}

// setup resolves config, opens the engine, installs the static prompt and
// returns a ready service.
func setup(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Resolve(configPath)
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return nil, err
	}
	return setupWith(ctx, cfg, log)
}

func setupWith(ctx context.Context, cfg config.Config, log zerolog.Logger) (*app, error) {
	httpapi.SetLogger(log)
	httpapi.SetDefaultLogLevel(cfg.LogLevel)

	eng, err := openEngine(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("engine %s: %w", cfg.Engine, err)
	}
	model, err := chat.NewModel(eng, chat.ModelConfig{
		MinQueryLength:      cfg.MinQueryLength,
		MaxContextLength:    cfg.MaxContextLength,
		MaxGenerationLength: cfg.MaxGenerationLength,
		MaxInflight:         cfg.MaxInflight,
		MaxQueue:            cfg.MaxQueue,
		QueueWait:           cfg.QueueWait.Std(),
		Publisher: chat.Publishers{
			chat.LogPublisher{Logger: log},
			httpapi.MetricsPublisher{},
		},
	})
	if err != nil {
		_ = eng.Close()
		return nil, err
	}
	ok, err := model.SetStaticPrompt(ctx, cfg.StaticUserPrompt, cfg.StaticAssistantPrompt)
	if err != nil {
		_ = model.Close()
		return nil, fmt.Errorf("static prompt: %w", err)
	}
	if !ok {
		_ = model.Close()
		return nil, fmt.Errorf("static prompt leaves less than min_query_length=%d tokens for queries", cfg.MinQueryLength)
	}
	log.Info().
		Str("engine", cfg.Engine).
		Int("static_prompt_tokens", model.StaticPromptLength()).
		Int("max_query_length", model.MaxQueryLength()).
		Msg("model ready")

	svc := httpapi.NewModelService(model, cfg.Engine)
	svc.SetReady(true)
	return &app{cfg: cfg, log: log, model: model, svc: svc}, nil
}

func (a *app) Close() error { return a.model.Close() }
