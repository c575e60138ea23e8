// Package discovery registers the service with a Consul agent so gateways
// can route to it, and removes the registration on shutdown.
package discovery

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/consul/api"
)

// Health check timings registered with the agent.
const (
	CheckInterval = 10 * time.Second
	CheckTimeout  = 5 * time.Second
)

// Config describes how to reach Consul and how the service is advertised.
type Config struct {
	// ConsulAddr is the agent address (host:port or URL).
	ConsulAddr string
	Token      string
	// Name is the service name; the ID is derived from it.
	Name string
	// ServiceAddress is the externally reachable address of this service,
	// optionally with a scheme and port ("https://llm.example.com",
	// "10.0.0.4:8000").
	ServiceAddress string
	// RootPath prefixes the health check path.
	RootPath string
	Tags     []string
}

// Registration is a live service registration.
type Registration struct {
	client *api.Client
	id     string
	check  string
}

// ID is the Consul service id.
func (r *Registration) ID() string { return r.id }

// CheckURL is the HTTP health check the agent polls.
func (r *Registration) CheckURL() string { return r.check }

// Register connects to the agent, verifies it has a leader and registers the
// service with an HTTP health check on <service address><root path>/health.
func Register(cfg Config) (*Registration, error) {
	if strings.TrimSpace(cfg.ConsulAddr) == "" {
		return nil, errors.New("consul address is empty")
	}
	if cfg.Name == "" {
		return nil, errors.New("service name is empty")
	}
	svc, err := parseServiceAddress(cfg.ServiceAddress)
	if err != nil {
		return nil, err
	}

	cc := api.DefaultConfig()
	if scheme, host, ok := strings.Cut(cfg.ConsulAddr, "://"); ok {
		cc.Scheme, cc.Address = scheme, host
	} else {
		cc.Address = cfg.ConsulAddr
	}
	if cfg.Token != "" {
		cc.Token = cfg.Token
	}
	client, err := api.NewClient(cc)
	if err != nil {
		return nil, fmt.Errorf("consul client: %w", err)
	}
	if _, err := client.Status().Leader(); err != nil {
		return nil, fmt.Errorf("consul unreachable at %s: %w", cfg.ConsulAddr, err)
	}

	id := cfg.Name + "-" + uuid.NewString()
	check := svc.url() + strings.TrimRight(cfg.RootPath, "/") + "/health"
	reg := &api.AgentServiceRegistration{
		ID:      id,
		Name:    cfg.Name,
		Tags:    cfg.Tags,
		Address: svc.host,
		Port:    svc.port,
		Check: &api.AgentServiceCheck{
			HTTP:     check,
			Interval: CheckInterval.String(),
			Timeout:  CheckTimeout.String(),
		},
	}
	opts := api.ServiceRegisterOpts{ReplaceExistingChecks: true}
	if err := client.Agent().ServiceRegisterOpts(reg, opts); err != nil {
		return nil, fmt.Errorf("consul register: %w", err)
	}
	return &Registration{client: client, id: id, check: check}, nil
}

// Deregister removes the service from the agent.
func (r *Registration) Deregister() error {
	if r == nil {
		return nil
	}
	if err := r.client.Agent().ServiceDeregister(r.id); err != nil {
		return fmt.Errorf("consul deregister: %w", err)
	}
	return nil
}

type serviceAddress struct {
	scheme string
	host   string
	port   int
}

func (s serviceAddress) url() string {
	return s.scheme + "://" + net.JoinHostPort(s.host, strconv.Itoa(s.port))
}

// parseServiceAddress accepts "host", "host:port" or "scheme://host[:port]".
// Without a scheme https is assumed; without a port the scheme default.
func parseServiceAddress(s string) (serviceAddress, error) {
	s = strings.TrimRight(strings.TrimSpace(s), "/")
	if s == "" {
		return serviceAddress{}, errors.New("service address is empty")
	}
	out := serviceAddress{scheme: "https"}
	if scheme, rest, ok := strings.Cut(s, "://"); ok {
		out.scheme, s = strings.ToLower(scheme), rest
	}
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		host = s
		switch out.scheme {
		case "http":
			out.port = 80
		default:
			out.port = 443
		}
	} else {
		p, err := strconv.Atoi(portStr)
		if err != nil || p <= 0 || p > 65535 {
			return serviceAddress{}, fmt.Errorf("invalid service port %q", portStr)
		}
		out.port = p
	}
	if host == "" {
		return serviceAddress{}, fmt.Errorf("invalid service address %q", s)
	}
	out.host = host
	return out, nil
}
