package secrets

import "testing"

func TestEnvName(t *testing.T) {
	if got := envName(SolverAPIKey); got != "VEIL_SOLVER_API_KEY" {
		t.Errorf("envName(%q) = %q, want VEIL_SOLVER_API_KEY", SolverAPIKey, got)
	}
	if got := envName(TorControlPassword); got != "VEIL_TOR_CONTROL_PASSWORD" {
		t.Errorf("envName(%q) = %q, want VEIL_TOR_CONTROL_PASSWORD", TorControlPassword, got)
	}
}

func TestLookup_EnvOverrideWins(t *testing.T) {
	t.Setenv("VEIL_SOLVER_API_KEY", "from-env")
	if got := Lookup(SolverAPIKey); got != "from-env" {
		t.Errorf("Lookup = %q, want %q", got, "from-env")
	}
}
