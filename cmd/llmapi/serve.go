package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"llmapi/internal/discovery"
	"llmapi/internal/httpapi"
)

func serveCmd(configPath *string) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the model and serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := setup(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			if addr != "" {
				a.cfg.Addr = addr
			}
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address, overrides config (e.g. :8000)")
	return cmd
}

// handler configures the HTTP layer from cfg and returns the router. The base
// context cancels in-flight generations on shutdown.
func (a *app) handler(base context.Context) http.Handler {
	httpapi.SetMaxBodyBytes(a.cfg.MaxBodyBytes)
	httpapi.SetCORSOptions(httpapi.CORSOptions{
		Enabled: a.cfg.CORSEnabled,
		Origins: a.cfg.CORSAllowedOrigins,
		Methods: a.cfg.CORSAllowedMethods,
		Headers: a.cfg.CORSAllowedHeaders,
	})
	httpapi.SetRootPath(a.cfg.RootPath)
	httpapi.SetBaseContext(base)
	return httpapi.NewMux(a.svc)
}

// serve runs the HTTP server until ctx is done, then drains it within the
// configured shutdown timeout.
func (a *app) serve(ctx context.Context) error {
	base, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	ln, err := net.Listen("tcp", a.cfg.Addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: a.handler(base)}

	errc := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", ln.Addr().String()).Str("engine", a.cfg.Engine).Msg("llmapi listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	reg, err := a.register()
	if err != nil {
		a.log.Error().Err(err).Msg("consul registration failed")
	}

	select {
	case <-ctx.Done():
	case err := <-errc:
		a.deregister(reg)
		return err
	}

	a.log.Info().Msg("shutting down")
	a.svc.SetReady(false)
	a.deregister(reg)

	sctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout.Std())
	defer cancel()
	// Stop generations first so streaming handlers return promptly.
	cancelBase()
	if err := srv.Shutdown(sctx); err != nil {
		a.log.Warn().Err(err).Msg("graceful shutdown error")
		return err
	}
	return <-errc
}

// register announces the service to Consul when consul_addr is set.
func (a *app) register() (*discovery.Registration, error) {
	if a.cfg.ConsulAddr == "" {
		return nil, nil
	}
	reg, err := discovery.Register(discovery.Config{
		ConsulAddr:     a.cfg.ConsulAddr,
		Token:          a.cfg.ConsulToken,
		Name:           a.cfg.AppName,
		ServiceAddress: a.cfg.ConsulServiceAddress,
		RootPath:       a.cfg.RootPath,
		Tags:           []string{"llm", a.cfg.Engine},
	})
	if err != nil {
		return nil, err
	}
	a.log.Info().Str("id", reg.ID()).Str("check", reg.CheckURL()).Msg("registered with consul")
	return reg, nil
}

func (a *app) deregister(reg *discovery.Registration) {
	if reg == nil {
		return
	}
	if err := reg.Deregister(); err != nil {
		a.log.Warn().Err(err).Msg("consul deregistration failed")
	}
}
