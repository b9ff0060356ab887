package graphdb

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/vvka-141/graphload/pkg/graphload"
)

// ParseAddress reads a FalkorDB URL into a ConnectionConfig.
//
// Supported forms:
//   - falkor://[user[:password]@]host[:port][/graph]
//   - redis://... (same layout)
//   - falkors://... or rediss://... (TLS)
//   - host[:port]
func ParseAddress(addr string) (*graphload.ConnectionConfig, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("address is empty: %w", graphload.ErrInvalidConfig)
	}

	config := &graphload.ConnectionConfig{
		Backend:    graphload.BackendFalkorDB,
		Host:       graphload.DefaultHost,
		Port:       graphload.DefaultPort,
		AuthMethod: graphload.AuthMethodStandard,
	}

	if !strings.Contains(addr, "://") {
		return parseHostPort(addr, config)
	}

	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address: %w: %w", graphload.ErrInvalidConfig, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "falkor", "falkordb", "redis":
	case "falkors", "rediss":
		config.TLS = true
	default:
		return nil, fmt.Errorf("unsupported scheme %q (use falkor:// or redis://): %w", u.Scheme, graphload.ErrInvalidConfig)
	}

	if u.Hostname() != "" {
		config.Host = u.Hostname()
	}
	if u.Port() != "" {
		port, err := parsePort(u.Port())
		if err != nil {
			return nil, err
		}
		config.Port = port
	}

	if u.User != nil {
		config.Username = u.User.Username()
		if pass, ok := u.User.Password(); ok {
			config.Password = pass
		}
	}

	if graph := strings.Trim(u.Path, "/"); graph != "" {
		if strings.Contains(graph, "/") {
			return nil, fmt.Errorf("graph name %q cannot contain '/': %w", graph, graphload.ErrInvalidConfig)
		}
		config.Graph = graph
	}

	return config, nil
}

func parseHostPort(addr string, config *graphload.ConnectionConfig) (*graphload.ConnectionConfig, error) {
	host, portStr, found := strings.Cut(addr, ":")
	if host != "" {
		config.Host = host
	}
	if found {
		port, err := parsePort(portStr)
		if err != nil {
			return nil, err
		}
		config.Port = port
	}
	if strings.ContainsAny(config.Host, "/@ ") {
		return nil, fmt.Errorf("invalid host %q: %w", config.Host, graphload.ErrInvalidConfig)
	}
	return config, nil
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("invalid port %q: %w", s, graphload.ErrInvalidConfig)
	}
	return port, nil
}
