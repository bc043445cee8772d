package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/veilcrawl/veil/internal/pacing"
	"github.com/veilcrawl/veil/internal/proxy"
	"github.com/veilcrawl/veil/internal/target"
	"github.com/veilcrawl/veil/pkg/models"
)

// scriptedStrategy returns a per-URL outcome, succeeding on listed URLs.
type scriptedStrategy struct {
	name    models.StrategyName
	succeed map[string]bool
}

func (s *scriptedStrategy) Name() models.StrategyName { return s.name }

func (s *scriptedStrategy) Fetch(ctx context.Context, tgt target.Target, _ proxy.Endpoint) (*models.FetchResult, *Failure) {
	if s.succeed[tgt.URL()] {
		return &models.FetchResult{URL: tgt.URL(), Strategy: s.name, StatusCode: 200}, nil
	}
	return nil, NewFailure(KindBlocked, s.name, nil, "scripted failure")
}

func mustTargets(t *testing.T, urls ...string) []target.Target {
	t.Helper()
	targets := make([]target.Target, len(urls))
	for i, u := range urls {
		targets[i] = mustTarget(t, u)
	}
	return targets
}

func quickPacer() *pacing.Policy {
	return pacing.New(time.Millisecond, 2*time.Millisecond, time.Millisecond, 2*time.Millisecond, nil)
}

func TestDispatcher_MixedBatch(t *testing.T) {
	// A succeeds on the first strategy, B only on the last fallback, C
	// exhausts the chain.
	imp := &scriptedStrategy{name: models.StrategyImpersonate, succeed: map[string]bool{
		"https://a.example.com": true,
	}}
	br := &scriptedStrategy{name: models.StrategyBrowser, succeed: map[string]bool{}}
	tr := &scriptedStrategy{name: models.StrategyTor, succeed: map[string]bool{
		"https://b.example.com": true,
	}}
	o := newTestOrchestrator(imp, br, tr, nil, AllCapabilities())
	d := NewDispatcher(o, quickPacer(), time.Second)

	targets := mustTargets(t, "https://a.example.com", "https://b.example.com", "https://c.example.com")
	batch := d.Run(context.Background(), targets, 1)

	if len(batch.Outcomes) != len(targets) {
		t.Fatalf("got %d outcomes, want %d", len(batch.Outcomes), len(targets))
	}
	if batch.Successes() != 2 || batch.Failures() != 1 {
		t.Errorf("successes=%d failures=%d, want 2/1", batch.Successes(), batch.Failures())
	}

	a, b, c := batch.Outcomes[0], batch.Outcomes[1], batch.Outcomes[2]
	if !a.Success() || a.Result.Strategy != models.StrategyImpersonate {
		t.Errorf("target A outcome = %+v, want impersonate success", a)
	}
	if !b.Success() || b.Result.Strategy != models.StrategyTor {
		t.Errorf("target B outcome = %+v, want tor success after fallback", b)
	}
	if c.Success() || c.Err == nil {
		t.Errorf("target C outcome = %+v, want exhaustion failure", c)
	}
}

func TestDispatcher_OutcomesPreserveInputOrder(t *testing.T) {
	succeed := map[string]bool{}
	urls := []string{
		"https://one.example.com",
		"https://two.example.com",
		"https://three.example.com",
		"https://four.example.com",
		"https://five.example.com",
	}
	for _, u := range urls {
		succeed[u] = true
	}
	imp := &scriptedStrategy{name: models.StrategyImpersonate, succeed: succeed}
	o := newTestOrchestrator(imp, nil, nil, nil, Capabilities{HTTPImpersonation: true})
	d := NewDispatcher(o, nil, time.Second)

	batch := d.Run(context.Background(), mustTargets(t, urls...), 3)
	if len(batch.Outcomes) != len(urls) {
		t.Fatalf("got %d outcomes, want %d", len(batch.Outcomes), len(urls))
	}
	for i, o := range batch.Outcomes {
		if o.URL != urls[i] {
			t.Errorf("Outcomes[%d].URL = %q, want %q", i, o.URL, urls[i])
		}
	}
}

func TestDispatcher_ConcurrencyBound(t *testing.T) {
	var mu sync.Mutex
	inFlight, maxInFlight := 0, 0

	gate := &gatedStrategy{
		enter: func() {
			mu.Lock()
			inFlight++
			if inFlight > maxInFlight {
				maxInFlight = inFlight
			}
			mu.Unlock()
		},
		leave: func() {
			mu.Lock()
			inFlight--
			mu.Unlock()
		},
	}
	o := newTestOrchestrator(gate, nil, nil, nil, Capabilities{HTTPImpersonation: true})
	d := NewDispatcher(o, nil, time.Second)

	urls := make([]string, 8)
	for i := range urls {
		urls[i] = "https://host" + string(rune('a'+i)) + ".example.com"
	}
	d.Run(context.Background(), mustTargets(t, urls...), 2)

	if maxInFlight > 2 {
		t.Errorf("max in-flight = %d, want <= 2", maxInFlight)
	}
}

// gatedStrategy reports entry and exit so tests can observe concurrency.
type gatedStrategy struct {
	enter func()
	leave func()
}

func (g *gatedStrategy) Name() models.StrategyName { return models.StrategyImpersonate }

func (g *gatedStrategy) Fetch(ctx context.Context, tgt target.Target, _ proxy.Endpoint) (*models.FetchResult, *Failure) {
	g.enter()
	defer g.leave()
	time.Sleep(10 * time.Millisecond)
	return &models.FetchResult{URL: tgt.URL(), Strategy: models.StrategyImpersonate, StatusCode: 200}, nil
}

// panickingStrategy blows up on Fetch.
type panickingStrategy struct{}

func (panickingStrategy) Name() models.StrategyName { return models.StrategyImpersonate }

func (panickingStrategy) Fetch(ctx context.Context, tgt target.Target, _ proxy.Endpoint) (*models.FetchResult, *Failure) {
	panic("strategy bug")
}

func TestDispatcher_PanicBecomesFailedOutcome(t *testing.T) {
	o := newTestOrchestrator(panickingStrategy{}, nil, nil, nil, Capabilities{HTTPImpersonation: true})
	d := NewDispatcher(o, nil, time.Second)

	batch := d.Run(context.Background(), mustTargets(t, "https://example.com"), 1)
	if len(batch.Outcomes) != 1 {
		t.Fatalf("got %d outcomes, want 1", len(batch.Outcomes))
	}
	out := batch.Outcomes[0]
	if out.Success() {
		t.Fatal("panicking attempt reported success")
	}
	if out.Err == nil {
		t.Fatal("panicking attempt has no error")
	}
}

func TestDispatcher_OnResultObservesEveryOutcome(t *testing.T) {
	imp := &scriptedStrategy{name: models.StrategyImpersonate, succeed: map[string]bool{
		"https://a.example.com": true,
	}}
	o := newTestOrchestrator(imp, nil, nil, nil, Capabilities{HTTPImpersonation: true})
	d := NewDispatcher(o, quickPacer(), time.Second)

	var mu sync.Mutex
	seen := 0
	d.OnResult = func(models.Outcome) {
		mu.Lock()
		seen++
		mu.Unlock()
	}

	d.Run(context.Background(), mustTargets(t, "https://a.example.com", "https://b.example.com"), 1)
	if seen != 2 {
		t.Errorf("OnResult saw %d outcomes, want 2", seen)
	}
}
