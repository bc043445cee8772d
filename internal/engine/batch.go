package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/veilcrawl/veil/internal/pacing"
	"github.com/veilcrawl/veil/internal/target"
	"github.com/veilcrawl/veil/pkg/models"
)

// targetTimeoutFactor scales the per-strategy timeout up to a per-target
// budget wide enough for a full chain walk.
const targetTimeoutFactor = 3

// Dispatcher fans a set of targets over the orchestrator. It always returns
// exactly one outcome per input target, in input order; a panicking attempt
// is converted into a failed outcome instead of taking the batch down.
type Dispatcher struct {
	orch            *Orchestrator
	pacer           *pacing.Policy
	perTargetBudget time.Duration

	// OnResult, when set, observes each outcome as it lands. Called from
	// worker goroutines; the callback must be safe for concurrent use.
	OnResult func(models.Outcome)
}

// NewDispatcher creates a dispatcher. strategyTimeout is the single-strategy
// timeout the per-target budget is derived from.
func NewDispatcher(orch *Orchestrator, pacer *pacing.Policy, strategyTimeout time.Duration) *Dispatcher {
	return &Dispatcher{
		orch:            orch,
		pacer:           pacer,
		perTargetBudget: strategyTimeout * targetTimeoutFactor,
	}
}

// Run fetches every target and aggregates the outcomes. concurrency <= 1
// runs sequentially with a randomized pause between targets; higher values
// bound the number of in-flight targets.
func (d *Dispatcher) Run(ctx context.Context, targets []target.Target, concurrency int) *models.BatchResult {
	batch := &models.BatchResult{
		Outcomes: make([]models.Outcome, len(targets)),
		Started:  time.Now().UTC(),
	}

	if concurrency <= 1 {
		d.runSequential(ctx, targets, batch)
	} else {
		d.runConcurrent(ctx, targets, batch, concurrency)
	}

	batch.Finished = time.Now().UTC()
	log.Info().
		Int("targets", len(targets)).
		Int("successes", batch.Successes()).
		Int("failures", batch.Failures()).
		Dur("elapsed", batch.Finished.Sub(batch.Started)).
		Msg("Batch completed")
	return batch
}

func (d *Dispatcher) runSequential(ctx context.Context, targets []target.Target, batch *models.BatchResult) {
	for i, tgt := range targets {
		batch.Outcomes[i] = d.fetchOne(ctx, tgt)
		if d.OnResult != nil {
			d.OnResult(batch.Outcomes[i])
		}
		if i < len(targets)-1 && d.pacer != nil {
			if err := d.pacer.Delay(ctx); err != nil {
				d.fillCanceled(ctx, targets[i+1:], batch.Outcomes[i+1:])
				return
			}
		}
	}
}

func (d *Dispatcher) runConcurrent(ctx context.Context, targets []target.Target, batch *models.BatchResult, concurrency int) {
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for i, tgt := range targets {
		wg.Add(1)
		go func(i int, tgt target.Target) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			batch.Outcomes[i] = d.fetchOne(ctx, tgt)
			if d.OnResult != nil {
				d.OnResult(batch.Outcomes[i])
			}
		}(i, tgt)
	}
	wg.Wait()
}

// fetchOne runs the full chain for one target under its own budget. A panic
// anywhere below becomes a failed outcome.
func (d *Dispatcher) fetchOne(ctx context.Context, tgt target.Target) (out models.Outcome) {
	out.URL = tgt.URL()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("url", tgt.URL()).Any("panic", r).Msg("Fetch attempt panicked")
			out.Result = nil
			out.Err = NewFailure(KindInternal, "", fmt.Errorf("panic: %v", r), "fetch attempt panicked")
		}
	}()

	fetchCtx := ctx
	if d.perTargetBudget > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, d.perTargetBudget)
		defer cancel()
	}

	result, err := d.orch.Fetch(fetchCtx, tgt)
	out.Result = result
	out.Err = err
	return out
}

// fillCanceled marks the remaining targets of an interrupted sequential run.
func (d *Dispatcher) fillCanceled(ctx context.Context, targets []target.Target, outcomes []models.Outcome) {
	for i, tgt := range targets {
		outcomes[i] = models.Outcome{
			URL: tgt.URL(),
			Err: NewFailure(classify(ctx.Err()), "", ctx.Err(), "batch interrupted"),
		}
		if d.OnResult != nil {
			d.OnResult(outcomes[i])
		}
	}
}
