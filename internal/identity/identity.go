// Package identity builds the ephemeral per-attempt session identity: a
// user-agent string and randomized window geometry. A Session belongs to
// exactly one browser attempt and is never shared across concurrent attempts.
package identity

import (
	"math/rand/v2"

	"github.com/veilcrawl/veil/internal/proxy"
)

// userAgents mirrors a current desktop browser population.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:122.0) Gecko/20100101 Firefox/122.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// RandomUserAgent returns one entry from the user-agent population.
func RandomUserAgent() string {
	return userAgents[rand.IntN(len(userAgents))]
}

// Session is the identity one browser-backed attempt presents: egress
// endpoint, user-agent, and window geometry. Created at attempt start,
// discarded when the attempt ends.
type Session struct {
	Endpoint  proxy.Endpoint
	UserAgent string
	Width     int
	Height    int
}

// NewSession assembles a fresh identity for one attempt. Window geometry is
// randomized within common desktop bounds so it does not fingerprint as a
// fixed automation default.
func NewSession(ep proxy.Endpoint) Session {
	return Session{
		Endpoint:  ep,
		UserAgent: RandomUserAgent(),
		Width:     1800 + rand.IntN(121),
		Height:    900 + rand.IntN(181),
	}
}
