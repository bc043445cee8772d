// Package target models a single fetch target and its routing hint.
package target

import (
	"fmt"
	"net/url"
	"strings"
)

// Target is a URL plus its derived routing hint. Immutable once created.
type Target struct {
	url       string
	host      string
	onionOnly bool
}

// New parses and validates rawURL. Only http and https schemes are accepted.
func New(rawURL string) (Target, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Target{}, fmt.Errorf("invalid target URL %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Target{}, fmt.Errorf("invalid target URL %q: scheme must be http or https", rawURL)
	}
	if u.Hostname() == "" {
		return Target{}, fmt.Errorf("invalid target URL %q: missing host", rawURL)
	}

	return Target{
		url:       rawURL,
		host:      u.Hostname(),
		onionOnly: strings.HasSuffix(u.Hostname(), ".onion"),
	}, nil
}

// URL returns the target URL as given.
func (t Target) URL() string { return t.url }

// Host returns the target hostname without port.
func (t Target) Host() string { return t.host }

// OnionOnly reports whether the target is reachable only through the
// anonymity network. Such targets route directly to the tor strategy with no
// fallback, since no other strategy can reach them.
func (t Target) OnionOnly() bool { return t.onionOnly }
