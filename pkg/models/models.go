package models

import "time"

// StrategyName identifies a transport strategy.
type StrategyName string

const (
	StrategyImpersonate StrategyName = "impersonate"
	StrategyBrowser     StrategyName = "browser"
	StrategyTor         StrategyName = "tor"
)

// FetchResult holds the normalized outcome of one successful fetch attempt.
// Produced exactly once per successful attempt; never mutated after creation.
type FetchResult struct {
	URL          string            `json:"url"`
	Strategy     StrategyName      `json:"method"`
	StatusCode   int               `json:"status_code"`
	Title        string            `json:"title,omitempty"`
	HTML         string            `json:"html,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	FetchedAt    time.Time         `json:"fetched_at"`
	ResponseTime int64             `json:"response_time_ms"`
}

// Outcome records the terminal state of one target within a batch: either
// Result is set (success) or Err carries the last strategy's failure.
type Outcome struct {
	URL    string
	Result *FetchResult
	Err    error
}

// Success reports whether the target produced a FetchResult.
func (o Outcome) Success() bool {
	return o.Result != nil
}

// BatchResult aggregates per-target outcomes of one dispatcher run.
type BatchResult struct {
	Outcomes []Outcome
	Started  time.Time
	Finished time.Time
}

// Successes returns the number of targets that produced a result.
func (b *BatchResult) Successes() int {
	n := 0
	for _, o := range b.Outcomes {
		if o.Success() {
			n++
		}
	}
	return n
}

// Failures returns the number of targets that exhausted every strategy.
func (b *BatchResult) Failures() int {
	return len(b.Outcomes) - b.Successes()
}

// Failed returns the outcomes that did not produce a result.
func (b *BatchResult) Failed() []Outcome {
	var failed []Outcome
	for _, o := range b.Outcomes {
		if !o.Success() {
			failed = append(failed, o)
		}
	}
	return failed
}
