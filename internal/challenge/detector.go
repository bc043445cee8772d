// Package challenge detects interactive verification challenges on fetched
// pages and resolves them through an external solving service.
package challenge

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

// signatures are the structural markers of known challenge widgets. A single
// match is sufficient. The list is fixed; detection is a structural query, so
// cost is independent of document size.
var signatures = []string{
	`iframe[src*="captcha"]`,
	`iframe[src*="recaptcha"]`,
	`iframe[title*="reCAPTCHA"]`,
	`#cf-challenge-running`,
	`.g-recaptcha`,
	`#challenge-form`,
	`[name="cf-turnstile-response"]`,
}

// Detector checks documents for challenge signatures. False negatives are
// tolerated (the attempt fails downstream); false positives only cost an
// unnecessary resolution attempt.
type Detector struct {
	combined string
}

// NewDetector builds a detector over the fixed signature set.
func NewDetector() *Detector {
	return &Detector{combined: strings.Join(signatures, ", ")}
}

// Detect inspects the live document of a rendered session. ctx must be a
// chromedp context.
func (d *Detector) Detect(ctx context.Context) (bool, error) {
	var found bool
	expr := "document.querySelector('" + d.combined + "') !== null"
	if err := chromedp.Run(ctx, chromedp.Evaluate(expr, &found)); err != nil {
		return false, err
	}
	return found, nil
}

// DetectHTML inspects raw HTML, used for responses fetched without a browser.
func (d *Detector) DetectHTML(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	for _, sig := range signatures {
		if doc.Find(sig).Length() > 0 {
			return true
		}
	}
	return false
}
