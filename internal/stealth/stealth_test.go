package stealth

import (
	"strings"
	"testing"
)

func TestPayload_Embedded(t *testing.T) {
	p := Payload()
	if p == "" {
		t.Fatal("Embedded payload is empty")
	}

	// The payload must at minimum neutralize the webdriver flag.
	if !strings.Contains(p, "navigator, 'webdriver'") {
		t.Error("Payload does not cover the webdriver property")
	}
}
