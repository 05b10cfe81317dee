package reachability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/homeinventory/inventory-sync/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.Prober = (*HTTPProber)(nil)
	_ driven.Prober = (*TCPProber)(nil)
	_ driven.Prober = ProberFunc(nil)
)

// ProberFunc adapts a function to driven.Prober.
type ProberFunc func(ctx context.Context) error

func (f ProberFunc) Probe(ctx context.Context) error { return f(ctx) }

// HTTPProber treats any 2xx/3xx answer from URL as reachable.
type HTTPProber struct {
	URL    string
	Client *http.Client
}

// NewHTTPProber creates a prober for the backend health endpoint.
func NewHTTPProber(url string) *HTTPProber {
	return &HTTPProber{
		URL: url,
		Client: &http.Client{
			Timeout: 5 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Probe issues a GET against the health endpoint.
func (p *HTTPProber) Probe(ctx context.Context) error {
	if p.URL == "" {
		return errors.New("probe url is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("probe %s: %w", p.URL, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("probe %s: status %d", p.URL, resp.StatusCode)
	}
	return nil
}

// TCPProber treats a successful TCP handshake with Address as reachable.
type TCPProber struct {
	Address string
	dialer  net.Dialer
}

// NewTCPProber creates a prober dialing host:port.
func NewTCPProber(address string) *TCPProber {
	return &TCPProber{Address: address}
}

// Probe dials and immediately closes the connection.
func (p *TCPProber) Probe(ctx context.Context) error {
	conn, err := p.dialer.DialContext(ctx, "tcp", p.Address)
	if err != nil {
		return fmt.Errorf("dial %s: %w", p.Address, err)
	}
	return conn.Close()
}
