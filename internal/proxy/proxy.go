// Package proxy builds HTTP clients that tunnel through a SOCKS5
// endpoint, for deployments where the speech APIs are only reachable
// that way.
package proxy

import (
	"context"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/net/proxy"
)

const defaultTimeout = 120 * time.Second

// NewSocksClient returns an http.Client dialing through the given
// SOCKS5 address. An empty address yields a plain client with the same
// timeout.
func NewSocksClient(socksAddr string, timeout time.Duration) (*http.Client, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if socksAddr == "" {
		return &http.Client{Timeout: timeout}, nil
	}

	dialer, err := proxy.SOCKS5("tcp", socksAddr, nil, proxy.Direct)
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		},
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}, nil
}

// ClientFromEnv builds a client from explicit configuration, falling
// back to the ALL_PROXY environment variable.
func ClientFromEnv(socksAddr string, timeout time.Duration) (*http.Client, error) {
	if socksAddr == "" {
		socksAddr = os.Getenv("ALL_PROXY")
	}
	return NewSocksClient(socksAddr, timeout)
}
