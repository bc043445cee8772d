// internal/cli/secret.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veilcrawl/veil/internal/secrets"
	"github.com/veilcrawl/veil/internal/ui"
)

// secretCmd manages stored credentials
var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage stored credentials",
	Long: `Secrets are kept in the OS keyring when available, falling back to files
under ~/.veil/secrets. Known names:

  solver-api-key         API key for the challenge-solving service
  tor-control-password   Password for the Tor control port`,
}

var secretSetCmd = &cobra.Command{
	Use:   "set <name> <value>",
	Short: "Store a credential",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := secrets.Store(args[0], args[1]); err != nil {
			return fmt.Errorf("failed to store secret: %w", err)
		}
		fmt.Printf("%s stored %s\n", ui.Success("ok"), args[0])
		return nil
	},
}

var secretDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Remove a stored credential",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := secrets.Delete(args[0]); err != nil {
			return fmt.Errorf("failed to delete secret: %w", err)
		}
		fmt.Printf("%s deleted %s\n", ui.Success("ok"), args[0])
		return nil
	},
}

func init() {
	// Managing secrets needs no fetch machinery.
	secretCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error { return nil }

	secretCmd.AddCommand(secretSetCmd)
	secretCmd.AddCommand(secretDeleteCmd)
	rootCmd.AddCommand(secretCmd)
}
