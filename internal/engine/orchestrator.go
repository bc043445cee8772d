package engine

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/veilcrawl/veil/internal/proxy"
	"github.com/veilcrawl/veil/internal/stats"
	"github.com/veilcrawl/veil/internal/target"
	"github.com/veilcrawl/veil/pkg/models"
)

// Orchestrator walks the strategy chain for one target: impersonated HTTP,
// then a rendered browser, then the anonymity network. Each strategy runs at
// most once per target, the first success ends the chain, and only the last
// failure survives exhaustion. Targets on .onion hosts skip the chain and go
// straight to the anonymity network.
type Orchestrator struct {
	impersonate Strategy
	browser     Strategy
	tor         Strategy
	pool        *proxy.Pool
	caps        Capabilities
	stats       *stats.Stats
}

// NewOrchestrator wires the three strategies against the shared pool and
// counters. Any strategy may be nil when its capability is off.
func NewOrchestrator(impersonate, browser, tor Strategy, pool *proxy.Pool, caps Capabilities, st *stats.Stats) *Orchestrator {
	return &Orchestrator{
		impersonate: impersonate,
		browser:     browser,
		tor:         tor,
		pool:        pool,
		caps:        caps,
		stats:       st,
	}
}

// Fetch resolves one target to a result or the last strategy's failure.
func (o *Orchestrator) Fetch(ctx context.Context, tgt target.Target) (*models.FetchResult, error) {
	if tgt.OnionOnly() {
		return o.fetchOnion(ctx, tgt)
	}

	var last *Failure
	for _, step := range o.chain() {
		if err := ctx.Err(); err != nil {
			if last != nil {
				return nil, last
			}
			return nil, NewFailure(classify(err), "", err, "fetch canceled")
		}

		if step.renewFirst {
			// A fresh circuit before the terminal fallback; on failure the
			// attempt proceeds on the existing circuit.
			if !o.pool.RenewIdentity(ctx) {
				log.Warn().
					Str("kind", string(KindIdentityRenewal)).
					Str("url", tgt.URL()).
					Msg("Identity renewal failed before anonymity-network attempt")
			}
		}

		result, failure := o.attempt(ctx, step.strategy, tgt, step.endpoint())
		if failure == nil {
			return result, nil
		}
		last = failure
		log.Debug().
			Str("url", tgt.URL()).
			Str("strategy", string(step.strategy.Name())).
			Str("kind", string(failure.Kind)).
			Msg("Strategy failed, falling back")
	}

	if last == nil {
		return nil, NewFailure(KindSessionInit, "", nil, "no transport strategy available")
	}
	return nil, last
}

// fetchOnion routes a .onion target terminally to the anonymity network.
func (o *Orchestrator) fetchOnion(ctx context.Context, tgt target.Target) (*models.FetchResult, error) {
	if !o.caps.AnonymityNetwork || o.tor == nil {
		return nil, NewFailure(KindSessionInit, models.StrategyTor, nil,
			"onion target requires the anonymity network, which is disabled")
	}
	result, failure := o.attempt(ctx, o.tor, tgt, o.pool.Sentinel())
	if failure != nil {
		return nil, failure
	}
	return result, nil
}

// chainStep is one position in the fallback chain.
type chainStep struct {
	strategy   Strategy
	endpoint   func() proxy.Endpoint
	renewFirst bool
}

// chain assembles the fallback order for a clearnet target, honoring the
// resolved capability set.
func (o *Orchestrator) chain() []chainStep {
	var steps []chainStep
	if o.caps.HTTPImpersonation && o.impersonate != nil {
		steps = append(steps, chainStep{strategy: o.impersonate, endpoint: o.pool.Next})
	}
	if o.caps.BrowserAutomation && o.browser != nil {
		steps = append(steps, chainStep{strategy: o.browser, endpoint: o.pool.Next})
	}
	if o.caps.AnonymityNetwork && o.tor != nil {
		steps = append(steps, chainStep{strategy: o.tor, endpoint: o.pool.Sentinel, renewFirst: true})
	}
	return steps
}

// attempt runs one strategy once and keeps the counters honest.
func (o *Orchestrator) attempt(ctx context.Context, s Strategy, tgt target.Target, ep proxy.Endpoint) (*models.FetchResult, *Failure) {
	if o.stats != nil {
		o.stats.Request()
	}
	result, failure := s.Fetch(ctx, tgt, ep)
	if o.stats != nil {
		if failure == nil {
			o.stats.Success()
		} else {
			o.stats.Failure()
		}
	}
	return result, failure
}
