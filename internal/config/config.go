package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// Config holds application configuration values
type Config struct {
	// Logging
	LogLevel string
	JSONLog  bool

	// Fetching
	Timeout time.Duration

	// Proxies
	ProxyFile   string
	ProxyKind   string
	ProxyRotate bool

	// Anonymity network
	TorSocksAddr   string
	TorControlAddr string
	ForceTor       bool
	NoTor          bool

	// Browser
	Headless   bool
	ChromePath string
	NoBrowser  bool

	// Challenges
	NoChallenge bool

	// Batch
	Workers  int
	Parallel bool

	// Pacing
	DelayMin  time.Duration
	DelayMax  time.Duration
	DwellMin  time.Duration
	DwellMax  time.Duration
	HostRPS   float64
	HostBurst int

	// Output
	OutputDir string
}

// Load builds a Config by combining defaults, environment variables, and CLI
// flags, in that order. Caller should pass the command so flags can be read.
func Load(cmd *cobra.Command) (*Config, error) {
	cfg := &Config{
		LogLevel:       DefaultLogLevel,
		JSONLog:        DefaultJSONLog,
		Timeout:        DefaultTimeout,
		ProxyKind:      DefaultProxyKind,
		ProxyRotate:    true,
		TorSocksAddr:   DefaultTorSocksAddr,
		TorControlAddr: DefaultTorControlAddr,
		Headless:       DefaultHeadless,
		Workers:        DefaultWorkers,
		DelayMin:       DefaultDelayMin,
		DelayMax:       DefaultDelayMax,
		DwellMin:       DefaultDwellMin,
		DwellMax:       DefaultDwellMax,
		HostRPS:        DefaultHostRPS,
		HostBurst:      DefaultHostBurst,
		OutputDir:      DefaultOutputDir,
	}

	// Override from environment variables
	if v := os.Getenv("VEIL_PROXY_FILE"); v != "" {
		cfg.ProxyFile = v
	}
	if v := os.Getenv("VEIL_PROXY_KIND"); v != "" {
		cfg.ProxyKind = v
	}
	if v := os.Getenv("VEIL_CHROME_PATH"); v != "" {
		cfg.ChromePath = v
	}
	if v := os.Getenv("VEIL_TOR_SOCKS"); v != "" {
		cfg.TorSocksAddr = v
	}
	if v := os.Getenv("VEIL_TOR_CONTROL"); v != "" {
		cfg.TorControlAddr = v
	}
	if v := os.Getenv("VEIL_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("VEIL_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Workers = n
		}
	}

	// Read CLI flags if provided
	if cmd != nil {
		readFlags(cmd, cfg)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func readFlags(cmd *cobra.Command, cfg *Config) {
	flagString(cmd, "proxy-file", &cfg.ProxyFile)
	flagString(cmd, "proxy-kind", &cfg.ProxyKind)
	flagString(cmd, "tor-socks", &cfg.TorSocksAddr)
	flagString(cmd, "tor-control", &cfg.TorControlAddr)
	flagString(cmd, "chrome-path", &cfg.ChromePath)
	flagString(cmd, "output-dir", &cfg.OutputDir)
	flagBool(cmd, "tor", &cfg.ForceTor)
	flagBool(cmd, "no-tor", &cfg.NoTor)
	flagBool(cmd, "no-browser", &cfg.NoBrowser)
	flagBool(cmd, "no-challenge", &cfg.NoChallenge)
	flagBool(cmd, "parallel", &cfg.Parallel)
	flagBool(cmd, "json", &cfg.JSONLog)

	if f := cmd.Flags().Lookup("headless"); f != nil && f.Changed {
		cfg.Headless = f.Value.String() == "true"
	}
	if f := cmd.Flags().Lookup("workers"); f != nil && f.Changed {
		if n, err := strconv.Atoi(f.Value.String()); err == nil {
			cfg.Workers = n
		}
	}
	if f := cmd.Flags().Lookup("timeout"); f != nil {
		if s := f.Value.String(); s != "" {
			if d, err := time.ParseDuration(s); err == nil {
				cfg.Timeout = d
			}
		}
	}
	if f := cmd.Flags().Lookup("verbose"); f != nil && f.Value.String() == "true" {
		cfg.LogLevel = "debug"
	}
	if f := cmd.Flags().Lookup("quiet"); f != nil && f.Value.String() == "true" {
		cfg.LogLevel = "error"
	}
}

func flagString(cmd *cobra.Command, name string, dst *string) {
	if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
		*dst = f.Value.String()
	}
}

func flagBool(cmd *cobra.Command, name string, dst *bool) {
	if f := cmd.Flags().Lookup(name); f != nil && f.Value.String() == "true" {
		*dst = true
	}
}
