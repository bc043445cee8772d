// Package proxy manages the rotating set of egress endpoints.
package proxy

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/veilcrawl/veil/internal/stats"
)

// Kind tags an endpoint with its egress class.
type Kind string

const (
	KindResidential Kind = "residential"
	KindMobile      Kind = "mobile"
	KindDatacenter  Kind = "datacenter"
	KindTor         Kind = "tor"
)

// Endpoint is one egress proxy. Endpoints are never mutated in place;
// rotation advances the pool index, never the endpoint contents.
type Endpoint struct {
	Address string
	Kind    Kind
}

// URL returns the endpoint in the scheme://host:port form understood by both
// the HTTP transports and chromedp's --proxy-server flag.
func (e Endpoint) URL() string {
	if e.Address == "" {
		return ""
	}
	if strings.Contains(e.Address, "://") {
		return e.Address
	}
	if e.Kind == KindTor {
		return "socks5://" + e.Address
	}
	return "http://" + e.Address
}

// IsTor reports whether the endpoint routes through the anonymity network.
func (e Endpoint) IsTor() bool {
	return e.Kind == KindTor
}

// CircuitRenewer requests a fresh anonymity-network circuit.
type CircuitRenewer interface {
	NewCircuit(ctx context.Context) error
}

// Pool owns an ordered list of endpoints and a shared rotation index. When
// the list is empty the pool degrades to a Tor sentinel endpoint so the
// system always has some egress path.
type Pool struct {
	mu        sync.Mutex
	endpoints []Endpoint
	index     int
	rotate    bool

	sentinel Endpoint
	renewer  CircuitRenewer
	stats    *stats.Stats
}

// Option configures a Pool.
type Option func(*Pool)

// WithRotation enables or disables index advancement on Next.
func WithRotation(rotate bool) Option {
	return func(p *Pool) { p.rotate = rotate }
}

// WithRenewer attaches the circuit renewer used by RenewIdentity.
func WithRenewer(r CircuitRenewer) Option {
	return func(p *Pool) { p.renewer = r }
}

// WithStats attaches the counters the pool reports rotations into.
func WithStats(s *stats.Stats) Option {
	return func(p *Pool) { p.stats = s }
}

// NewPool creates a pool over endpoints. torSocksAddr becomes the sentinel
// returned when the pool is empty.
func NewPool(endpoints []Endpoint, torSocksAddr string, opts ...Option) *Pool {
	p := &Pool{
		endpoints: endpoints,
		rotate:    true,
		sentinel:  Endpoint{Address: torSocksAddr, Kind: KindTor},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Next returns the current endpoint and, if rotation is enabled, advances the
// shared index modulo the pool size. Concurrent callers serialize on the
// index; each call observes exactly one endpoint.
func (p *Pool) Next() Endpoint {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.endpoints) == 0 {
		return p.sentinel
	}

	ep := p.endpoints[p.index]
	if p.rotate {
		p.index = (p.index + 1) % len(p.endpoints)
		if p.stats != nil {
			p.stats.ProxyRotation()
		}
	}
	return ep
}

// Size returns the number of configured endpoints, excluding the sentinel.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.endpoints)
}

// Sentinel returns the fallback Tor endpoint.
func (p *Pool) Sentinel() Endpoint {
	return p.sentinel
}

// RenewIdentity requests a fresh anonymity-network circuit and blocks until
// the circuit has settled. It reports success; failure degrades gracefully so
// the caller proceeds on the existing circuit.
func (p *Pool) RenewIdentity(ctx context.Context) bool {
	if p.renewer == nil {
		log.Warn().Msg("No circuit renewer configured, keeping current identity")
		return false
	}

	if err := p.renewer.NewCircuit(ctx); err != nil {
		log.Error().Err(err).Msg("Circuit renewal failed, proceeding on existing circuit")
		return false
	}

	if p.stats != nil {
		p.stats.IdentityRenewal()
	}
	log.Info().Msg("New circuit established")
	return true
}
