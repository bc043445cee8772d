// Package stats holds process-wide fetch counters.
//
// Counters are monotonically incremented and read only for reporting; the
// orchestrator never bases control decisions on them.
package stats

import "sync/atomic"

// Stats counts fetch activity across all workers. The zero value is ready to
// use. All methods are safe for concurrent use.
type Stats struct {
	requests         atomic.Int64
	successes        atomic.Int64
	failures         atomic.Int64
	challengesSolved atomic.Int64
	proxyRotations   atomic.Int64
	identityRenewals atomic.Int64
}

// New returns a zeroed Stats.
func New() *Stats {
	return &Stats{}
}

func (s *Stats) Request()          { s.requests.Add(1) }
func (s *Stats) Success()          { s.successes.Add(1) }
func (s *Stats) Failure()          { s.failures.Add(1) }
func (s *Stats) ChallengeSolved()  { s.challengesSolved.Add(1) }
func (s *Stats) ProxyRotation()    { s.proxyRotations.Add(1) }
func (s *Stats) IdentityRenewal()  { s.identityRenewals.Add(1) }

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Requests         int64
	Successes        int64
	Failures         int64
	ChallengesSolved int64
	ProxyRotations   int64
	IdentityRenewals int64
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Requests:         s.requests.Load(),
		Successes:        s.successes.Load(),
		Failures:         s.failures.Load(),
		ChallengesSolved: s.challengesSolved.Load(),
		ProxyRotations:   s.proxyRotations.Load(),
		IdentityRenewals: s.identityRenewals.Load(),
	}
}

// SuccessRate returns successes as a percentage of requests, or 0 when no
// requests have been recorded.
func (s Snapshot) SuccessRate() float64 {
	if s.Requests == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Requests) * 100
}
