package challenge

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// fakeSolvingService mimics the submit/poll text protocol of the external
// solving service.
func fakeSolvingService(t *testing.T, pollsUntilReady int, token string) *httptest.Server {
	t.Helper()
	polls := 0
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/in.php":
			if r.URL.Query().Get("googlekey") == "" {
				fmt.Fprint(w, "ERROR_WRONG_GOOGLEKEY")
				return
			}
			fmt.Fprint(w, "OK|12345")
		case "/res.php":
			polls++
			if polls < pollsUntilReady {
				fmt.Fprint(w, "CAPCHA_NOT_READY")
				return
			}
			fmt.Fprint(w, "OK|"+token)
		default:
			http.NotFound(w, r)
		}
	}))
}

func newTestSolver(serverURL string) *Solver {
	return NewSolver("test-key",
		WithBaseURL(serverURL),
		WithPollInterval(time.Millisecond),
		WithSolveTimeout(time.Second),
	)
}

func TestSolver_Solve(t *testing.T) {
	server := fakeSolvingService(t, 3, "solution-token")
	defer server.Close()

	token, err := newTestSolver(server.URL).Solve(context.Background(), "sitekey-abc", "https://example.com")
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if token != "solution-token" {
		t.Errorf("Token = %q, want %q", token, "solution-token")
	}
}

func TestSolver_Solve_RejectedSubmission(t *testing.T) {
	server := fakeSolvingService(t, 1, "unused")
	defer server.Close()

	if _, err := newTestSolver(server.URL).Solve(context.Background(), "", "https://example.com"); err == nil {
		t.Error("Solve succeeded with rejected submission, want error")
	}
}

func TestSolver_Solve_ServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/in.php" {
			fmt.Fprint(w, "OK|1")
			return
		}
		fmt.Fprint(w, "ERROR_CAPTCHA_UNSOLVABLE")
	}))
	defer server.Close()

	if _, err := newTestSolver(server.URL).Solve(context.Background(), "key", "https://example.com"); err == nil {
		t.Error("Solve succeeded despite service error, want error")
	}
}

func TestSolver_Solve_NoAPIKey(t *testing.T) {
	s := NewSolver("")
	if _, err := s.Solve(context.Background(), "key", "https://example.com"); err == nil {
		t.Error("Solve succeeded with empty API key, want error")
	}
}

func TestSolver_Solve_Unreachable(t *testing.T) {
	s := NewSolver("key",
		WithBaseURL("http://127.0.0.1:1"),
		WithPollInterval(time.Millisecond),
		WithSolveTimeout(50*time.Millisecond),
	)
	if _, err := s.Solve(context.Background(), "key", "https://example.com"); err == nil {
		t.Error("Solve succeeded against unreachable service, want error")
	}
}
