// Package secrets resolves credentials the fetcher needs at runtime: the
// challenge-solving API key and the Tor control-port password. Resolution
// order is environment variable, then OS keyring, then a file under the
// user's config directory. Keyring access fails on headless CI boxes, so the
// file fallback keeps those environments working.
package secrets

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name under which secrets are stored.
	KeyringService = "veil"

	// FallbackDir holds file-based secrets relative to the home directory.
	FallbackDir = ".veil/secrets"
)

// Known secret names.
const (
	SolverAPIKey       = "solver-api-key"
	TorControlPassword = "tor-control-password"
)

// envName maps a secret name to its environment override.
func envName(name string) string {
	return "VEIL_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

// Lookup resolves a secret by name. A missing secret is not an error; the
// empty string means "not configured" and callers degrade accordingly.
func Lookup(name string) string {
	if v := os.Getenv(envName(name)); v != "" {
		return v
	}

	if v, err := keyring.Get(KeyringService, name); err == nil && v != "" {
		return v
	}

	path, err := fallbackPath(name)
	if err != nil {
		return ""
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

// Store persists a secret, preferring the keyring and degrading to a file
// with owner-only permissions.
func Store(name, value string) error {
	if err := keyring.Set(KeyringService, name, value); err == nil {
		return nil
	} else {
		log.Debug().Err(err).Str("secret", name).Msg("Keyring unavailable, storing to file")
	}

	path, err := fallbackPath(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(value), 0600)
}

// Delete removes a secret from both backends.
func Delete(name string) error {
	kerr := keyring.Delete(KeyringService, name)

	path, err := fallbackPath(name)
	if err == nil {
		if rerr := os.Remove(path); rerr == nil || os.IsNotExist(rerr) {
			return nil
		}
	}
	if kerr == nil || kerr == keyring.ErrNotFound {
		return nil
	}
	return kerr
}

func fallbackPath(name string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, FallbackDir, name), nil
}
