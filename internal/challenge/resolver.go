package challenge

import (
	"context"
	"strconv"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

const submitSettle = 3 * time.Second

// Resolver obtains a solution token for a detected challenge and submits it
// inside the live rendered session. Resolve mutates the session; it must be
// called at most once per attempt.
type Resolver struct {
	solver *Solver
}

// NewResolver creates a resolver backed by the given solving-service client.
func NewResolver(solver *Solver) *Resolver {
	return &Resolver{solver: solver}
}

// Resolve extracts the site key from the current document, obtains a token,
// writes it into the challenge response field, and triggers the form submit.
// It returns false on any failure (missing key, service error, missing
// submit control) and never panics into the caller. ctx must be the chromedp
// context of the attempt's session.
func (r *Resolver) Resolve(ctx context.Context, pageURL string) bool {
	var siteKey string
	err := chromedp.Run(ctx, chromedp.Evaluate(
		`(() => { const el = document.querySelector('[data-sitekey]'); return el ? el.getAttribute('data-sitekey') : ''; })()`,
		&siteKey,
	))
	if err != nil || siteKey == "" {
		log.Warn().Err(err).Msg("No challenge site key found in document")
		return false
	}

	token, err := r.solver.Solve(ctx, siteKey, pageURL)
	if err != nil {
		log.Error().Err(err).Msg("Challenge solving failed")
		return false
	}

	inject := `(() => {
		const el = document.querySelector('[name="g-recaptcha-response"]');
		if (!el) return false;
		el.value = ` + strconv.Quote(token) + `;
		return true;
	})()`

	var injected bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(inject, &injected)); err != nil || !injected {
		log.Warn().Err(err).Msg("No challenge response field to write token into")
		return false
	}

	if err := chromedp.Run(ctx,
		chromedp.Click(`button[type="submit"], input[type="submit"]`, chromedp.ByQuery),
		chromedp.Sleep(submitSettle),
	); err != nil {
		log.Warn().Err(err).Msg("Challenge form submit failed")
		return false
	}

	log.Info().Str("url", pageURL).Msg("Challenge token submitted")
	return true
}
