package fetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/proxy"
)

// ClientSet holds the two HTTP clients the fetch stage selects between: a
// plain client and one routed through a SOCKS5 proxy (typically a local Tor
// daemon) for sources flagged as anonymized-transport.
type ClientSet struct {
	plain *http.Client
	tor   *http.Client
}

// NewClientSet builds the client pair. When torProxyAddr is empty the tor
// client falls back to the plain client so flagged sources still fetch
// rather than fail.
func NewClientSet(timeout time.Duration, torProxyAddr string) (*ClientSet, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	plain := &http.Client{Timeout: timeout}

	cs := &ClientSet{plain: plain, tor: plain}
	if torProxyAddr == "" {
		return cs, nil
	}

	dialer, err := proxy.SOCKS5("tcp", torProxyAddr, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to build socks5 dialer for %s: %w", torProxyAddr, err)
	}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		},
	}
	cs.tor = &http.Client{Timeout: timeout, Transport: transport}
	return cs, nil
}

// For returns the client matching a source's transport flag.
func (c *ClientSet) For(useTor bool) *http.Client {
	if useTor {
		return c.tor
	}
	return c.plain
}
