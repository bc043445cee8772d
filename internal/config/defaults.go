package config

import "time"

// Default constants for application configuration
const (
	DefaultLogLevel       = "info"
	DefaultJSONLog        = false
	DefaultTimeout        = 30 * time.Second
	DefaultHeadless       = true
	DefaultWorkers        = 3
	DefaultMaxWorkers     = 32
	DefaultProxyKind      = "datacenter"
	DefaultTorSocksAddr   = "127.0.0.1:9050"
	DefaultTorControlAddr = "127.0.0.1:9051"
	DefaultOutputDir      = "results"
	DefaultDelayMin       = 2 * time.Second
	DefaultDelayMax       = 8 * time.Second
	DefaultDwellMin       = 5 * time.Second
	DefaultDwellMax       = 15 * time.Second
	DefaultHostRPS        = 1.0
	DefaultHostBurst      = 2
)
