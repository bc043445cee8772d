// Package engine implements the transport strategies and the fallback
// orchestration that turns one target URL into at most one FetchResult.
package engine

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/veilcrawl/veil/internal/proxy"
	"github.com/veilcrawl/veil/internal/target"
	"github.com/veilcrawl/veil/pkg/models"
)

// Strategy is one way of fetching a target. Fetch performs exactly one
// attempt: it returns a result or a typed Failure, never both. Strategies
// hold no per-target state; the endpoint is chosen by the caller.
type Strategy interface {
	Name() models.StrategyName
	Fetch(ctx context.Context, tgt target.Target, ep proxy.Endpoint) (*models.FetchResult, *Failure)
}

// Capabilities records which strategies the current process can actually
// run. It is resolved once at startup from configuration and environment and
// never changes mid-run; a strategy whose capability is off is skipped, not
// attempted-and-failed.
type Capabilities struct {
	HTTPImpersonation bool
	BrowserAutomation bool
	AnonymityNetwork  bool
	ChallengeSolving  bool
}

// AllCapabilities enables every strategy.
func AllCapabilities() Capabilities {
	return Capabilities{
		HTTPImpersonation: true,
		BrowserAutomation: true,
		AnonymityNetwork:  true,
		ChallengeSolving:  true,
	}
}

// extractTitle pulls the document title out of raw HTML. A missing or
// unparsable title is not an error; the result just has none.
func extractTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// flattenHeaders keeps the first value of each response header.
func flattenHeaders(h map[string][]string) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
