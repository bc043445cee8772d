// internal/cli/summary.go
package cli

import (
	"fmt"
	"time"

	"github.com/veilcrawl/veil/internal/ui"
	"github.com/veilcrawl/veil/pkg/models"
)

const timeRound = 10 * time.Millisecond

// printSummary writes the per-run report to stdout: one line per target and
// the aggregate counters.
func printSummary(batch *models.BatchResult) {
	a := GetApp()

	fmt.Println()
	for _, o := range batch.Outcomes {
		if o.Success() {
			fmt.Printf("  %s %s  %s(%s, %d, %dms)%s\n",
				ui.Success("ok"), o.URL,
				ui.ColorDim, o.Result.Strategy, o.Result.StatusCode, o.Result.ResponseTime, ui.ColorReset)
		} else {
			fmt.Printf("  %s %s  %s%v%s\n",
				ui.Error("fail"), o.URL,
				ui.ColorDim, o.Err, ui.ColorReset)
		}
	}

	snap := a.Stats.Snapshot()
	fmt.Printf("\n%s\n", ui.Bold("Summary"))
	fmt.Printf("  targets     %d ok, %d failed\n", batch.Successes(), batch.Failures())
	fmt.Printf("  attempts    %d (%.1f%% success)\n", snap.Requests, snap.SuccessRate())
	if snap.ChallengesSolved > 0 {
		fmt.Printf("  challenges  %d solved\n", snap.ChallengesSolved)
	}
	if snap.ProxyRotations > 0 {
		fmt.Printf("  rotations   %d proxy, %d identity\n", snap.ProxyRotations, snap.IdentityRenewals)
	}
	fmt.Printf("  elapsed     %s\n", batch.Finished.Sub(batch.Started).Round(timeRound))
}
