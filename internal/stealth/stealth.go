// Package stealth injects the anti-fingerprinting payload into rendered
// browser sessions. The payload itself is a fixed, externally maintained
// script; the engine applies it opaquely, once per session, before any
// navigation.
package stealth

import (
	"context"
	_ "embed"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

//go:embed evasions.js
var evasionsJS string

// Inject returns the action that registers the evasion payload to run on
// every new document of the session. Must be applied before Navigate.
func Inject() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(evasionsJS).Do(ctx)
		return err
	})
}

// Payload exposes the raw script, mainly for tests.
func Payload() string {
	return evasionsJS
}
