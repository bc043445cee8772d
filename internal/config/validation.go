package config

import "fmt"

func validate(c *Config) error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0")
	}
	if c.ForceTor && c.NoTor {
		return fmt.Errorf("--tor and --no-tor are mutually exclusive")
	}
	if c.Workers <= 0 || c.Workers > DefaultMaxWorkers {
		return fmt.Errorf("workers must be between 1 and %d", DefaultMaxWorkers)
	}
	switch c.ProxyKind {
	case "residential", "mobile", "datacenter", "tor":
	default:
		return fmt.Errorf("proxy kind %q is not one of residential, mobile, datacenter, tor", c.ProxyKind)
	}
	if c.DelayMax < c.DelayMin {
		return fmt.Errorf("delay-max must be >= delay-min")
	}
	if c.DwellMax < c.DwellMin {
		return fmt.Errorf("dwell-max must be >= dwell-min")
	}
	if c.HostRPS <= 0 {
		return fmt.Errorf("host rate limit must be > 0")
	}
	return nil
}
