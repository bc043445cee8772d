package proxy

import (
	"os"
	"path/filepath"
	"testing"
)

func writeProxyFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "proxies.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write proxy file: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeProxyFile(t, `# residential pool
10.0.0.1:8080
user:pass@10.0.0.2:8080

# trailing comment
10.0.0.3:3128
`)

	endpoints := LoadFile(path, KindResidential)
	if len(endpoints) != 3 {
		t.Fatalf("Loaded %d endpoints, want 3", len(endpoints))
	}
	if endpoints[0].Address != "10.0.0.1:8080" {
		t.Errorf("First endpoint = %s, want 10.0.0.1:8080", endpoints[0].Address)
	}
	for _, ep := range endpoints {
		if ep.Kind != KindResidential {
			t.Errorf("Endpoint %s has kind %s, want residential", ep.Address, ep.Kind)
		}
	}
}

func TestLoadFile_OnlyCommentsAndBlanks(t *testing.T) {
	path := writeProxyFile(t, "# nothing here\n\n# still nothing\n")

	if endpoints := LoadFile(path, KindDatacenter); len(endpoints) != 0 {
		t.Errorf("Loaded %d endpoints from comment-only file, want 0", len(endpoints))
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if endpoints := LoadFile("/nonexistent/proxies.txt", KindMobile); endpoints != nil {
		t.Errorf("Loaded %v from missing file, want nil", endpoints)
	}
}

func TestLoadFile_SkipsMalformedEntries(t *testing.T) {
	path := writeProxyFile(t, "not-a-proxy\n10.0.0.1:8080\n")

	endpoints := LoadFile(path, KindResidential)
	if len(endpoints) != 1 {
		t.Fatalf("Loaded %d endpoints, want 1", len(endpoints))
	}
}

func TestLoadFile_EmptyListFallsBackToSentinel(t *testing.T) {
	path := writeProxyFile(t, "\n")

	pool := NewPool(LoadFile(path, KindResidential), "127.0.0.1:9050")
	if ep := pool.Next(); !ep.IsTor() {
		t.Errorf("Pool over empty list returned %s, want tor sentinel", ep.Kind)
	}
}
