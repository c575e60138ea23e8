package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"llmapi/internal/chat"
)

// SpawnConfig describes a llama-server process owned by this service.
type SpawnConfig struct {
	// Bin is the llama-server executable.
	Bin       string
	ModelPath string
	// Host defaults to 127.0.0.1; Port 0 picks a free port.
	Host        string
	Port        int
	ContextSize int
	GPULayers   int
	Threads     int
	ExtraArgs   []string
	// Env is appended to the inherited environment.
	Env          []string
	ReadyTimeout time.Duration
	Log          zerolog.Logger
}

// Process is a spawned llama-server.
type Process struct {
	cmd     *exec.Cmd
	baseURL string
	log     zerolog.Logger
	exited  chan struct{}
	waitErr error
	stopped sync.Once
}

// BaseURL is the http address the server listens on.
func (p *Process) BaseURL() string { return p.baseURL }

// PID of the server process.
func (p *Process) PID() int { return p.cmd.Process.Pid }

// Spawn starts llama-server and waits until /health answers 200. It fails
// early with a stderr tail when the process exits before becoming ready.
func Spawn(ctx context.Context, cfg SpawnConfig) (*Process, error) {
	if strings.TrimSpace(cfg.Bin) == "" {
		return nil, errors.New("llama-server binary is empty")
	}
	if strings.TrimSpace(cfg.ModelPath) == "" {
		return nil, errors.New("model path is empty")
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port == 0 {
		var err error
		if port, err = pickFreePort(host); err != nil {
			return nil, err
		}
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 60 * time.Second
	}

	args := []string{"-m", cfg.ModelPath, "--host", host, "--port", strconv.Itoa(port)}
	if cfg.ContextSize > 0 {
		args = append(args, "-c", strconv.Itoa(cfg.ContextSize))
	}
	if cfg.GPULayers > 0 {
		args = append(args, "-ngl", strconv.Itoa(cfg.GPULayers))
	}
	if cfg.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(cfg.Threads))
	}
	args = append(args, cfg.ExtraArgs...)

	cmd := exec.Command(cfg.Bin, args...)
	cmd.Env = append(os.Environ(), cfg.Env...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start llama-server: %w", err)
	}
	p := &Process{
		cmd:     cmd,
		baseURL: "http://" + net.JoinHostPort(host, strconv.Itoa(port)),
		log:     cfg.Log,
		exited:  make(chan struct{}),
	}
	go func() {
		p.waitErr = cmd.Wait()
		close(p.exited)
	}()
	p.log.Info().Str("model", cfg.ModelPath).Int("pid", p.PID()).Str("url", p.baseURL).Msg("llama-server start")

	if err := p.waitReady(ctx, cfg.ReadyTimeout, &stderr); err != nil {
		_ = p.Stop()
		return nil, err
	}
	p.log.Info().Int("pid", p.PID()).Msg("llama-server ready")
	return p, nil
}

func (p *Process) waitReady(ctx context.Context, timeout time.Duration, stderr *bytes.Buffer) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	cli := &http.Client{Timeout: time.Second}
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-p.exited:
			// stderr is complete once Wait has returned.
			tail := stderr.String()
			if len(tail) > 4096 {
				tail = tail[len(tail)-4096:]
			}
			p.log.Error().Err(p.waitErr).Int("pid", p.PID()).Msg("llama-server exited before ready")
			return fmt.Errorf("llama-server exited before ready: %v; stderr tail: %s", p.waitErr, tail)
		case <-ctx.Done():
			return fmt.Errorf("llama-server not ready at %s: %w", p.baseURL, ctx.Err())
		case <-tick.C:
		}
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/health", nil)
		resp, err := cli.Do(req)
		if err != nil {
			continue
		}
		_ = resp.Body.Close()
		if resp.StatusCode/100 == 2 {
			return nil
		}
	}
}

// Stop sends SIGTERM and kills the process if it has not exited within two
// seconds. Safe to call more than once.
func (p *Process) Stop() error {
	p.stopped.Do(func() {
		select {
		case <-p.exited:
			return
		default:
		}
		_ = p.cmd.Process.Signal(syscall.SIGTERM)
		select {
		case <-p.exited:
		case <-time.After(2 * time.Second):
			_ = p.cmd.Process.Kill()
			<-p.exited
		}
		p.log.Info().Int("pid", p.PID()).Msg("llama-server stopped")
	})
	return nil
}

// Exited is closed once the process has terminated.
func (p *Process) Exited() <-chan struct{} { return p.exited }

func pickFreePort(host string) (int, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// NewSpawned starts a llama-server for sc and connects an Engine to it. The
// engine owns the process and stops it on Close.
func NewSpawned(ctx context.Context, sc SpawnConfig, cfg Config) (*Engine, error) {
	p, err := Spawn(ctx, sc)
	if err != nil {
		return nil, chat.ErrEngineUnavailable(err.Error())
	}
	cfg.BaseURL = p.BaseURL()
	e, err := New(ctx, cfg)
	if err != nil {
		_ = p.Stop()
		return nil, err
	}
	e.proc = p
	return e, nil
}
