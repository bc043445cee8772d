// internal/cli/root.go
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/veilcrawl/veil/internal/app"
	"github.com/veilcrawl/veil/internal/config"
	"github.com/veilcrawl/veil/internal/ui"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "veil",
	Short:   "Adaptive multi-strategy fetcher for hard-to-reach sites",
	Long:    `Veil retrieves pages from sites that resist automated access, escalating from impersonated HTTP through a rendered browser to the anonymity network until one succeeds.`,
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	config.RegisterFlags(rootCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Lazily initialize the application before running commands (avoid
	// starting it for -h/help).
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if GetApp() != nil {
			return nil
		}

		cfg, err := config.Load(cmd)
		if err != nil {
			return err
		}

		a, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		SetApp(a)
		return nil
	}

	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		a := GetApp()
		if a == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), a.Config.Timeout)
		defer cancel()
		if err := a.Close(ctx); err != nil {
			log.Warn().Err(err).Msg("Shutdown reported an error")
		}
		SetApp(nil)
	}

	rootCmd.SetHelpFunc(helpFunc)
}

// helpFunc provides a colorized help output
func helpFunc(cmd *cobra.Command, args []string) {
	fmt.Fprintf(os.Stdout, "\n%s%s%s\n", ui.ColorBold+ui.ColorCyan, strings.ToUpper(cmd.Name()), ui.ColorReset)
	if cmd.Short != "" {
		fmt.Fprintf(os.Stdout, "%s\n", cmd.Short)
	}

	fmt.Fprintf(os.Stdout, "\n%sUsage%s\n", ui.ColorBold+ui.ColorWhite, ui.ColorReset)
	if cmd.Runnable() {
		fmt.Fprintf(os.Stdout, "  %s%s%s\n", ui.ColorCyan, cmd.UseLine(), ui.ColorReset)
	}
	if cmd.HasAvailableSubCommands() {
		fmt.Fprintf(os.Stdout, "  %s%s%s <command> [flags]\n", ui.ColorCyan, cmd.CommandPath(), ui.ColorReset)

		fmt.Fprintf(os.Stdout, "\n%sCommands%s\n", ui.ColorBold+ui.ColorWhite, ui.ColorReset)
		for _, c := range cmd.Commands() {
			if c.IsAvailableCommand() && c.Name() != "help" {
				fmt.Fprintf(os.Stdout, "  %s%-12s%s%s%s%s\n",
					ui.ColorCyan, c.Name(), ui.ColorReset,
					ui.ColorDim, c.Short, ui.ColorReset)
			}
		}
	}

	if cmd.HasExample() {
		fmt.Fprintf(os.Stdout, "\n%sExamples%s\n%s\n", ui.ColorBold+ui.ColorWhite, ui.ColorReset, cmd.Example)
	}

	if cmd.HasAvailableLocalFlags() {
		fmt.Fprintf(os.Stdout, "\n%sFlags%s\n%s", ui.ColorBold+ui.ColorWhite, ui.ColorReset, cmd.LocalFlags().FlagUsages())
	}
	if cmd.HasAvailableInheritedFlags() {
		fmt.Fprintf(os.Stdout, "\n%sGlobal Flags%s\n%s", ui.ColorBold+ui.ColorWhite, ui.ColorReset, cmd.InheritedFlags().FlagUsages())
	}
	fmt.Fprintln(os.Stdout)
}
