package proxy

import (
	"bufio"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// LoadFile reads a line-oriented proxy list. Each non-empty line is a
// host:port (optionally credentialed or scheme-prefixed) entry; lines
// starting with # are comments. A missing or empty file yields no endpoints,
// which makes the pool fall back to its Tor sentinel.
func LoadFile(path string, kind Kind) []Endpoint {
	f, err := os.Open(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Proxy file not readable, falling back to tor sentinel")
		return nil
	}
	defer f.Close()

	var endpoints []Endpoint
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.Contains(line, ":") {
			log.Warn().Str("entry", line).Msg("Skipping malformed proxy entry")
			continue
		}
		endpoints = append(endpoints, Endpoint{Address: line, Kind: kind})
	}
	if err := scanner.Err(); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to read proxy file")
	}

	log.Debug().Int("count", len(endpoints)).Str("path", path).Msg("Proxy list loaded")
	return endpoints
}
