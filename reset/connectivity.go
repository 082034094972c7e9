package reset

import (
	"context"
	"net"
	"time"

	"github.com/maeven-tapa/eals/apperror"
)

// Prober checks that outbound email has a chance of working.
type Prober interface {
	Probe(ctx context.Context) error
}

type ProberFunc func(ctx context.Context) error

func (f ProberFunc) Probe(ctx context.Context) error { return f(ctx) }

// DNSProber resolves a well-known host. A failed lookup means no internet.
type DNSProber struct {
	Host     string
	Timeout  time.Duration
	Resolver *net.Resolver
}

func (p DNSProber) Probe(ctx context.Context) error {
	host := p.Host
	if host == "" {
		host = "google.com"
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	resolver := p.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := resolver.LookupHost(ctx, host); err != nil {
		return apperror.Wrap(apperror.CodeTransportUnavailable, "no internet connection", err)
	}
	return nil
}
