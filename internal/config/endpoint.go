package config

import (
	"fmt"
	"net/url"
	"strings"
)

// LocalHost is the host context that selects the local development address.
const LocalHost = "localhost"

// SocketBase returns the base address for the configured host context.
func (e EndpointConfig) SocketBase() string {
	if e.HostContext == LocalHost {
		return e.LocalSocketURL
	}
	return e.SocketURL
}

// WebSocketURL resolves the full ws:// or wss:// URL to dial.
// http and https base addresses are mapped to ws and wss.
func (e EndpointConfig) WebSocketURL() (string, error) {
	base := e.SocketBase()
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse socket url %q: %w", base, err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported socket url scheme %q", u.Scheme)
	}

	if e.Path != "" {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(e.Path, "/")
	}

	return u.String(), nil
}
