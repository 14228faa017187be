package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/mytua/wcsync/internal/runlog"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past sync runs",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 10, "Number of runs to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	header := color.New(color.FgCyan, color.Bold)

	header.Println("\n  SYNC HISTORY")
	fmt.Println("  " + strings.Repeat("─", 40))
	fmt.Println()

	log := runlog.NewStore("")
	if err := log.Load(); err != nil {
		color.Red("  Error: %v", err)
		return err
	}

	runs := log.RecentRuns(historyLimit)
	if len(runs) == 0 {
		color.Yellow("  No runs recorded yet.")
		fmt.Println()
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Started", "Duration", "Created", "Updated", "Skipped", "Failed", "Status"})
	table.SetBorder(false)
	table.SetHeaderColor(
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
	)

	// Most recent first.
	for i := len(runs) - 1; i >= 0; i-- {
		run := runs[i]
		status := color.GreenString("ok")
		if run.Aborted {
			status = color.RedString("aborted")
		} else if run.Failed > 0 {
			status = color.YellowString("partial")
		}
		table.Append([]string{
			run.StartedAt.Format("2006-01-02 15:04"),
			run.CompletedAt.Sub(run.StartedAt).Round(time.Second).String(),
			fmt.Sprintf("%d", run.Created),
			fmt.Sprintf("%d", run.Updated),
			fmt.Sprintf("%d", run.Skipped),
			fmt.Sprintf("%d", run.Failed),
			status,
		})
	}
	table.Render()
	fmt.Println()

	return nil
}
