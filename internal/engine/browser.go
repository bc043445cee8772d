package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"

	"github.com/veilcrawl/veil/internal/challenge"
	"github.com/veilcrawl/veil/internal/identity"
	"github.com/veilcrawl/veil/internal/pacing"
	"github.com/veilcrawl/veil/internal/proxy"
	"github.com/veilcrawl/veil/internal/stats"
	"github.com/veilcrawl/veil/internal/stealth"
	"github.com/veilcrawl/veil/internal/target"
	"github.com/veilcrawl/veil/pkg/models"
)

// BrowserStrategy fetches through a real rendered browser session. Every
// attempt gets its own browser process with a fresh identity; nothing is
// shared between attempts, so concurrent attempts cannot leak cookies or
// fingerprint state into each other.
type BrowserStrategy struct {
	headless   bool
	chromePath string
	timeout    time.Duration
	pacer      *pacing.Policy
	detector   *challenge.Detector
	resolver   *challenge.Resolver
	stats      *stats.Stats
}

// BrowserOption configures a BrowserStrategy.
type BrowserOption func(*BrowserStrategy)

// WithChromePath points the strategy at a specific browser binary.
func WithChromePath(path string) BrowserOption {
	return func(s *BrowserStrategy) { s.chromePath = path }
}

// WithResolver attaches a challenge resolver. Without one, detected
// challenges fail the attempt immediately.
func WithResolver(r *challenge.Resolver) BrowserOption {
	return func(s *BrowserStrategy) { s.resolver = r }
}

// WithBrowserStats attaches the counters solved challenges are reported into.
func WithBrowserStats(st *stats.Stats) BrowserOption {
	return func(s *BrowserStrategy) { s.stats = st }
}

// NewBrowserStrategy creates the strategy.
func NewBrowserStrategy(headless bool, timeout time.Duration, pacer *pacing.Policy, detector *challenge.Detector, opts ...BrowserOption) *BrowserStrategy {
	s := &BrowserStrategy{
		headless: headless,
		timeout:  timeout,
		pacer:    pacer,
		detector: detector,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the strategy identifier.
func (s *BrowserStrategy) Name() models.StrategyName {
	return models.StrategyBrowser
}

// Fetch renders the target in a dedicated browser session. The session is
// torn down on every exit path, success or failure.
func (s *BrowserStrategy) Fetch(ctx context.Context, tgt target.Target, ep proxy.Endpoint) (*models.FetchResult, *Failure) {
	sess := identity.NewSession(ep)

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("lang", "en-US,en"),
		chromedp.WindowSize(sess.Width, sess.Height),
		chromedp.UserAgent(sess.UserAgent),
	)
	if s.chromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(s.chromePath))
	}
	if ep.URL() != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(ep.URL()))
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	// Main-document status and headers arrive as CDP events, not as a
	// return value of Navigate. The callback runs on the event goroutine,
	// and iframe documents can keep firing after the first response.
	capture := newDocResponse()
	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok || resp.Type != network.ResourceTypeDocument {
			return
		}
		capture.record(int(resp.Response.Status), resp.Response.Headers)
	})

	start := time.Now()
	err := chromedp.Run(browserCtx,
		network.Enable(),
		stealth.Inject(),
		chromedp.Navigate(tgt.URL()),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return nil, NewFailure(s.launchKind(err), s.Name(), err, "rendered session failed")
	}

	if s.pacer != nil {
		if err := s.pacer.SimulateBrowsing(browserCtx); err != nil {
			return nil, NewFailure(classify(err), s.Name(), err, "browsing simulation interrupted")
		}
	}

	if s.detector != nil {
		found, derr := s.detector.Detect(browserCtx)
		if derr != nil {
			return nil, NewFailure(classify(derr), s.Name(), derr, "challenge detection failed")
		}
		if found {
			if f := s.resolveChallenge(browserCtx, tgt); f != nil {
				return nil, f
			}
		}
	}

	var html, title string
	err = chromedp.Run(browserCtx,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Title(&title),
	)
	if err != nil {
		return nil, NewFailure(classify(err), s.Name(), err, "document capture failed")
	}
	elapsed := time.Since(start)

	statusCode, headers := capture.snapshot()
	if statusCode == 0 {
		// Some navigations (cache hits, interrupted event streams) never
		// surface a document response event.
		statusCode = 200
	}
	if statusCode < 200 || statusCode > 299 {
		return nil, NewFailure(KindBlocked, s.Name(), nil,
			fmt.Sprintf("origin returned status %d", statusCode))
	}

	log.Debug().
		Str("url", tgt.URL()).
		Int("status", statusCode).
		Dur("elapsed", elapsed).
		Msg("Rendered fetch completed")

	return &models.FetchResult{
		URL:          tgt.URL(),
		Strategy:     s.Name(),
		StatusCode:   statusCode,
		Title:        strings.TrimSpace(title),
		HTML:         html,
		Headers:      headers,
		FetchedAt:    time.Now().UTC(),
		ResponseTime: elapsed.Milliseconds(),
	}, nil
}

// docResponse collects the first document response of a session. record is
// called from the CDP event goroutine while snapshot is read by the attempt
// goroutine, so both sides lock.
type docResponse struct {
	mu         sync.Mutex
	statusCode int
	headers    map[string]string
}

func newDocResponse() *docResponse {
	return &docResponse{headers: map[string]string{}}
}

// record keeps the first document response and ignores the rest.
func (d *docResponse) record(status int, raw network.Headers) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.statusCode != 0 {
		return
	}
	d.statusCode = status
	for k, v := range raw {
		if sv, ok := v.(string); ok {
			d.headers[k] = sv
		}
	}
}

func (d *docResponse) snapshot() (int, map[string]string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	headers := make(map[string]string, len(d.headers))
	for k, v := range d.headers {
		headers[k] = v
	}
	return d.statusCode, headers
}

// resolveChallenge runs the resolver at most once and re-checks the page.
// A nil return means the session is past the challenge.
func (s *BrowserStrategy) resolveChallenge(browserCtx context.Context, tgt target.Target) *Failure {
	if s.resolver == nil {
		return NewFailure(KindChallengeUnresolved, s.Name(), nil,
			"challenge detected and no resolver configured")
	}

	log.Info().Str("url", tgt.URL()).Msg("Challenge detected, attempting resolution")
	if !s.resolver.Resolve(browserCtx, tgt.URL()) {
		return NewFailure(KindChallengeUnresolved, s.Name(), nil,
			"challenge resolution failed")
	}

	still, err := s.detector.Detect(browserCtx)
	if err == nil && still {
		return NewFailure(KindChallengeUnresolved, s.Name(), nil,
			"challenge persisted after resolution")
	}
	if s.stats != nil {
		s.stats.ChallengeSolved()
	}
	return nil
}

// launchKind separates browser startup faults from in-session faults.
func (s *BrowserStrategy) launchKind(err error) FailureKind {
	if kind := classify(err); kind == KindTimeout {
		return kind
	}
	msg := err.Error()
	if strings.Contains(msg, "exec") || strings.Contains(msg, "executable file not found") {
		return KindSessionInit
	}
	return KindNetwork
}
