package challenge

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultSolverURL    = "https://2captcha.com"
	defaultPollInterval = 5 * time.Second
	defaultSolveTimeout = 2 * time.Minute
)

// Solver submits challenge keys to an external solving service and polls for
// the solution token. Any service or network failure yields "unsolved"; the
// solver never surfaces a fault into the fetch engine.
type Solver struct {
	baseURL      string
	apiKey       string
	client       *http.Client
	pollInterval time.Duration
	timeout      time.Duration
}

// SolverOption configures a Solver.
type SolverOption func(*Solver)

// WithBaseURL points the solver at a different service endpoint.
func WithBaseURL(u string) SolverOption {
	return func(s *Solver) { s.baseURL = strings.TrimSuffix(u, "/") }
}

// WithPollInterval overrides the answer polling cadence.
func WithPollInterval(d time.Duration) SolverOption {
	return func(s *Solver) { s.pollInterval = d }
}

// WithSolveTimeout bounds the total wait for a solution.
func WithSolveTimeout(d time.Duration) SolverOption {
	return func(s *Solver) { s.timeout = d }
}

// NewSolver creates a solving-service client.
func NewSolver(apiKey string, opts ...SolverOption) *Solver {
	s := &Solver{
		baseURL:      defaultSolverURL,
		apiKey:       apiKey,
		client:       &http.Client{Timeout: 30 * time.Second},
		pollInterval: defaultPollInterval,
		timeout:      defaultSolveTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Solve submits siteKey for pageURL and polls until the service returns a
// token or the solve timeout expires.
func (s *Solver) Solve(ctx context.Context, siteKey, pageURL string) (string, error) {
	if s.apiKey == "" {
		return "", fmt.Errorf("no solver API key configured")
	}

	id, err := s.submit(ctx, siteKey, pageURL)
	if err != nil {
		return "", err
	}
	log.Debug().Str("task", id).Msg("Challenge submitted to solving service")

	deadline := time.Now().Add(s.timeout)
	for time.Now().Before(deadline) {
		select {
		case <-time.After(s.pollInterval):
		case <-ctx.Done():
			return "", ctx.Err()
		}

		token, ready, err := s.poll(ctx, id)
		if err != nil {
			return "", err
		}
		if ready {
			return token, nil
		}
	}
	return "", fmt.Errorf("solving service timed out after %s", s.timeout)
}

// submit enqueues the challenge and returns the service-side task ID.
func (s *Solver) submit(ctx context.Context, siteKey, pageURL string) (string, error) {
	q := url.Values{}
	q.Set("key", s.apiKey)
	q.Set("method", "userrecaptcha")
	q.Set("googlekey", siteKey)
	q.Set("pageurl", pageURL)

	body, err := s.get(ctx, s.baseURL+"/in.php?"+q.Encode())
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(body, "OK|") {
		return "", fmt.Errorf("solving service rejected submission: %s", body)
	}
	return strings.TrimPrefix(body, "OK|"), nil
}

// poll checks one task. ready is false while the service is still working.
func (s *Solver) poll(ctx context.Context, id string) (token string, ready bool, err error) {
	q := url.Values{}
	q.Set("key", s.apiKey)
	q.Set("action", "get")
	q.Set("id", id)

	body, err := s.get(ctx, s.baseURL+"/res.php?"+q.Encode())
	if err != nil {
		return "", false, err
	}
	switch {
	case body == "CAPCHA_NOT_READY":
		return "", false, nil
	case strings.HasPrefix(body, "OK|"):
		return strings.TrimPrefix(body, "OK|"), true, nil
	default:
		return "", false, fmt.Errorf("solving service error: %s", body)
	}
}

func (s *Solver) get(ctx context.Context, u string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("solving service returned status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}
