package engine

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/veilcrawl/veil/pkg/models"
)

// FailureKind classifies why a fetch attempt failed.
type FailureKind string

const (
	// KindNetwork covers connection, DNS, and TLS faults.
	KindNetwork FailureKind = "network_error"

	// KindTimeout covers attempts cut off by a deadline.
	KindTimeout FailureKind = "timeout"

	// KindBlocked covers responses the origin served but that carry no
	// usable content: error status codes, near-empty bodies, challenge
	// interstitials fetched without a browser.
	KindBlocked FailureKind = "blocked_response"

	// KindChallengeUnresolved covers rendered sessions stuck behind a
	// verification challenge that could not be solved.
	KindChallengeUnresolved FailureKind = "challenge_unresolved"

	// KindSessionInit covers failures to bring up the attempt's transport,
	// such as a browser that will not launch or a SOCKS dialer that cannot
	// be built.
	KindSessionInit FailureKind = "session_init_error"

	// KindIdentityRenewal covers circuit renewal faults surfaced alongside
	// an anonymity-network attempt.
	KindIdentityRenewal FailureKind = "identity_renewal_failed"

	// KindInternal covers faults in the engine itself, including recovered
	// panics. These indicate a bug, not origin behavior.
	KindInternal FailureKind = "internal_error"
)

// Failure is the typed error every strategy returns. It pins the failing
// strategy and the failure class so the orchestrator and callers can report
// without string matching.
type Failure struct {
	Kind     FailureKind
	Strategy models.StrategyName
	Cause    error
	Message  string
}

// NewFailure builds a Failure for strategy with the given class and cause.
func NewFailure(kind FailureKind, strategy models.StrategyName, cause error, message string) *Failure {
	return &Failure{
		Kind:     kind,
		Strategy: strategy,
		Cause:    cause,
		Message:  message,
	}
}

func (f *Failure) Error() string {
	msg := f.Message
	if msg == "" && f.Cause != nil {
		msg = f.Cause.Error()
	}
	if f.Strategy == "" {
		return fmt.Sprintf("[%s] %s", f.Kind, msg)
	}
	return fmt.Sprintf("[%s] %s: %s", f.Strategy, f.Kind, msg)
}

func (f *Failure) Unwrap() error {
	return f.Cause
}

// Is matches another *Failure by kind, so callers can probe with
// errors.Is(err, &Failure{Kind: KindTimeout}).
func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	if !ok {
		return false
	}
	return f.Kind == t.Kind
}

// classify maps a transport error onto the failure taxonomy.
func classify(err error) FailureKind {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return KindTimeout
	default:
		return KindNetwork
	}
}
