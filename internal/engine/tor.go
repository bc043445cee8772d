package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/veilcrawl/veil/internal/identity"
	"github.com/veilcrawl/veil/internal/proxy"
	"github.com/veilcrawl/veil/internal/target"
	"github.com/veilcrawl/veil/internal/tor"
	"github.com/veilcrawl/veil/pkg/models"
)

// TorStrategy fetches through the local anonymity-network daemon. It is the
// last clearnet fallback and the only strategy that can reach .onion hosts.
type TorStrategy struct {
	socksAddr string
	timeout   time.Duration
}

// NewTorStrategy creates the strategy against the daemon at socksAddr.
func NewTorStrategy(socksAddr string, timeout time.Duration) *TorStrategy {
	return &TorStrategy{
		socksAddr: socksAddr,
		timeout:   timeout,
	}
}

// Name returns the strategy identifier.
func (s *TorStrategy) Name() models.StrategyName {
	return models.StrategyTor
}

// Fetch performs one request through the SOCKS listener. ep is ignored; the
// egress is always the daemon this strategy was built with.
func (s *TorStrategy) Fetch(ctx context.Context, tgt target.Target, _ proxy.Endpoint) (*models.FetchResult, *Failure) {
	client, err := tor.NewHTTPClient(s.socksAddr, s.timeout)
	if err != nil {
		return nil, NewFailure(KindSessionInit, s.Name(), err, "anonymity-network dialer setup failed")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tgt.URL(), nil)
	if err != nil {
		return nil, NewFailure(KindSessionInit, s.Name(), err, "request construction failed")
	}
	req.Header.Set("User-Agent", identity.RandomUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, NewFailure(classify(err), s.Name(), err, "request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, NewFailure(classify(err), s.Name(), err, "body read failed")
	}
	elapsed := time.Since(start)

	log.Debug().
		Str("url", tgt.URL()).
		Int("status", resp.StatusCode).
		Dur("elapsed", elapsed).
		Msg("Anonymity-network fetch completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, NewFailure(KindBlocked, s.Name(), nil,
			fmt.Sprintf("origin returned status %d", resp.StatusCode))
	}

	html := string(raw)
	return &models.FetchResult{
		URL:          tgt.URL(),
		Strategy:     s.Name(),
		StatusCode:   resp.StatusCode,
		Title:        extractTitle(html),
		HTML:         html,
		Headers:      flattenHeaders(resp.Header),
		FetchedAt:    time.Now().UTC(),
		ResponseTime: elapsed.Milliseconds(),
	}, nil
}
