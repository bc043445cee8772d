// internal/cli/fetch.go
package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/veilcrawl/veil/internal/target"
	"github.com/veilcrawl/veil/pkg/models"
)

var (
	urlFile    string
	summaryCSV string
	noSave     bool
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch [url...]",
	Short: "Fetch one or more URLs through the strategy chain",
	Long: `Fetch retrieves each URL, trying impersonated HTTP first, then a rendered
browser, then the anonymity network. Successful pages are written to the
output directory as JSON, one file per page.`,
	Example: `  # Single page
  veil fetch https://example.com

  # Several pages concurrently
  veil fetch -p -w 5 https://a.example.com https://b.example.com

  # Targets from a file, one URL per line
  veil fetch -f targets.txt

  # Onion service (requires a running Tor daemon)
  veil fetch http://exampleonionaddr.onion`,
	Args: cobra.ArbitraryArgs,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVarP(&urlFile, "file", "f", "", "File with one URL per line (# for comments)")
	fetchCmd.Flags().StringVar(&summaryCSV, "summary", "", "Also write a per-target CSV summary with this filename")
	fetchCmd.Flags().BoolVar(&noSave, "no-save", false, "Print results without writing files")
}

func runFetch(cmd *cobra.Command, args []string) error {
	a := GetApp()

	urls := args
	if urlFile != "" {
		fromFile, err := readURLFile(urlFile)
		if err != nil {
			return err
		}
		urls = append(urls, fromFile...)
	}
	if len(urls) == 0 {
		return fmt.Errorf("no URLs given: pass them as arguments or with --file")
	}

	targets := make([]target.Target, 0, len(urls))
	for _, raw := range urls {
		tgt, err := target.New(raw)
		if err != nil {
			return err
		}
		targets = append(targets, tgt)
	}

	var bar *progressbar.ProgressBar
	if !a.Config.JSONLog && len(targets) > 1 {
		bar = progressbar.NewOptions(len(targets),
			progressbar.OptionSetDescription("fetching"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		a.Dispatcher.OnResult = func(models.Outcome) { _ = bar.Add(1) }
	}

	concurrency := 1
	if a.Config.Parallel {
		concurrency = a.Config.Workers
	}
	batch := a.Dispatcher.Run(cmd.Context(), targets, concurrency)
	if bar != nil {
		_ = bar.Finish()
	}

	if !noSave {
		paths, err := a.Writer.SaveBatch(batch)
		if err != nil {
			log.Error().Err(err).Msg("Saving results failed")
		}
		for _, p := range paths {
			log.Debug().Str("path", p).Msg("Result saved")
		}
		if summaryCSV != "" {
			if _, err := a.Writer.SaveSummaryCSV(batch, summaryCSV); err != nil {
				log.Error().Err(err).Msg("Saving summary failed")
			}
		}
	}

	printSummary(batch)
	return nil
}

// readURLFile loads targets from a line-oriented file. Only lines beginning
// with a scheme are targets; anything else is skipped, not guessed at.
func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open URL file: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.Contains(line, "://") {
			log.Warn().Str("line", line).Msg("Skipping URL file line without a scheme")
			continue
		}
		urls = append(urls, line)
	}
	return urls, scanner.Err()
}
