// Package pacing keeps request cadence within human-plausible bounds.
//
// It provides randomized inter-request delays, simulated scroll/dwell
// behavior for rendered-browser sessions, and a per-host token-bucket cap for
// direct HTTP attempts. All randomness comes from the process-wide generator;
// calls are independent of the caller's prior state.
package pacing

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

// Policy produces delays and browsing simulation for one fetch run.
type Policy struct {
	delayMin time.Duration
	delayMax time.Duration
	dwellMin time.Duration
	dwellMax time.Duration
	limiter  *HostLimiter
}

// New creates a Policy with the given inter-request delay bounds and page
// dwell bounds.
func New(delayMin, delayMax, dwellMin, dwellMax time.Duration, limiter *HostLimiter) *Policy {
	if delayMax < delayMin {
		delayMax = delayMin
	}
	if dwellMax < dwellMin {
		dwellMax = dwellMin
	}
	return &Policy{
		delayMin: delayMin,
		delayMax: delayMax,
		dwellMin: dwellMin,
		dwellMax: dwellMax,
		limiter:  limiter,
	}
}

// Delay suspends the caller for a uniform sample of the configured
// inter-request bounds.
func (p *Policy) Delay(ctx context.Context) error {
	return sleep(ctx, uniform(p.delayMin, p.delayMax))
}

// DelayBetween suspends the caller for a uniform sample of [min, max].
func (p *Policy) DelayBetween(ctx context.Context, min, max time.Duration) error {
	if max < min {
		max = min
	}
	return sleep(ctx, uniform(min, max))
}

// Throttle blocks until the per-host cadence cap admits a request for host.
// It is a no-op when no limiter is configured.
func (p *Policy) Throttle(ctx context.Context, host string) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx, host)
}

// SimulateBrowsing issues scroll and dwell actions against a live rendered
// session: a downward scroll of randomized magnitude, an occasional partial
// reversal, then a longer dwell sample. ctx must be a chromedp context.
func (p *Policy) SimulateBrowsing(ctx context.Context) error {
	down := 300 + rand.IntN(400)
	if err := chromedp.Run(ctx, scrollBy(down)); err != nil {
		return fmt.Errorf("scroll simulation failed: %w", err)
	}
	if err := sleep(ctx, uniform(500*time.Millisecond, 1500*time.Millisecond)); err != nil {
		return err
	}

	// Humans scroll back up sometimes.
	if rand.Float64() < 0.3 {
		back := 50 + rand.IntN(150)
		if err := chromedp.Run(ctx, scrollBy(-back)); err != nil {
			return fmt.Errorf("scroll simulation failed: %w", err)
		}
		if err := sleep(ctx, uniform(300*time.Millisecond, 800*time.Millisecond)); err != nil {
			return err
		}
	}

	dwell := uniform(p.dwellMin, p.dwellMax)
	log.Debug().Dur("dwell", dwell).Msg("Dwelling on page")
	return sleep(ctx, dwell)
}

func scrollBy(px int) chromedp.Action {
	return chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", px), nil)
}

// uniform samples a duration uniformly from [min, max].
func uniform(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int64N(int64(max-min)))
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
