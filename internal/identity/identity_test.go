package identity

import (
	"strings"
	"testing"

	"github.com/veilcrawl/veil/internal/proxy"
)

func TestRandomUserAgent(t *testing.T) {
	for i := 0; i < 20; i++ {
		ua := RandomUserAgent()
		if !strings.HasPrefix(ua, "Mozilla/5.0") {
			t.Fatalf("Unexpected user agent %q", ua)
		}
	}
}

func TestNewSession_GeometryBounds(t *testing.T) {
	ep := proxy.Endpoint{Address: "10.0.0.1:8080", Kind: proxy.KindResidential}

	for i := 0; i < 20; i++ {
		s := NewSession(ep)
		if s.Width < 1800 || s.Width > 1920 {
			t.Errorf("Width %d outside [1800, 1920]", s.Width)
		}
		if s.Height < 900 || s.Height > 1080 {
			t.Errorf("Height %d outside [900, 1080]", s.Height)
		}
		if s.UserAgent == "" {
			t.Error("Session has empty user agent")
		}
		if s.Endpoint != ep {
			t.Errorf("Session endpoint = %+v, want %+v", s.Endpoint, ep)
		}
	}
}
