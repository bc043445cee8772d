package config

import "github.com/spf13/cobra"

// RegisterFlags registers common CLI flags on the provided root command
func RegisterFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress all output except errors")
	cmd.PersistentFlags().Bool("json", false, "Emit logs in JSON format")
	cmd.PersistentFlags().String("timeout", "30s", "Per-strategy timeout")

	cmd.PersistentFlags().String("proxy-file", "", "Path to a proxy list, one host:port per line")
	cmd.PersistentFlags().String("proxy-kind", DefaultProxyKind, "Proxy class: residential, mobile, datacenter, or tor")
	cmd.PersistentFlags().String("tor-socks", DefaultTorSocksAddr, "Tor SOCKS5 listener address")
	cmd.PersistentFlags().String("tor-control", DefaultTorControlAddr, "Tor control port address")
	cmd.PersistentFlags().Bool("tor", false, "Route every target through the anonymity network")
	cmd.PersistentFlags().Bool("no-tor", false, "Disable the anonymity-network fallback")

	cmd.PersistentFlags().Bool("headless", DefaultHeadless, "Run the browser headless")
	cmd.PersistentFlags().String("chrome-path", "", "Path to the browser binary")
	cmd.PersistentFlags().Bool("no-browser", false, "Disable the rendered-browser fallback")
	cmd.PersistentFlags().Bool("no-challenge", false, "Disable challenge solving")

	cmd.PersistentFlags().IntP("workers", "w", DefaultWorkers, "Concurrent targets when --parallel is set")
	cmd.PersistentFlags().BoolP("parallel", "p", false, "Fetch targets concurrently")
	cmd.PersistentFlags().StringP("output-dir", "o", DefaultOutputDir, "Directory for saved results")
}
