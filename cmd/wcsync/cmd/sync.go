package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/mytua/wcsync/internal/csvfeed"
	"github.com/mytua/wcsync/internal/engine"
	"github.com/mytua/wcsync/internal/images"
	"github.com/mytua/wcsync/internal/runlog"
	"github.com/mytua/wcsync/pkg/models"
)

var (
	syncImagesDir  string
	syncRemoteDir  string
	syncMode       string
	syncSkipExist  bool
	syncLimit      int
	syncBatchSize  int
	syncDryRun     bool
	syncNoBatch    bool
	syncEncoding   string
	syncShowSkips  bool
)

var syncCmd = &cobra.Command{
	Use:   "sync [feed.csv]",
	Short: "Sync a supplier feed into the store",
	Long: `Read a supplier CSV export, upload matching local images over SFTP
and create or update the products in WooCommerce.`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVarP(&syncImagesDir, "images", "i", "", "Directory with local product images")
	syncCmd.Flags().StringVar(&syncRemoteDir, "remote-dir", "products", "Remote directory under the SFTP base path")
	syncCmd.Flags().StringVarP(&syncMode, "mode", "m", "", "Update mode: all, images, description, missing (default from config)")
	syncCmd.Flags().BoolVar(&syncSkipExist, "skip-existing", false, "Never touch products that already exist")
	syncCmd.Flags().IntVarP(&syncLimit, "limit", "l", 0, "Limit number of records to process (0 = all)")
	syncCmd.Flags().IntVar(&syncBatchSize, "batch-size", 0, "Products per batch request (default from config)")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Decide everything but change nothing")
	syncCmd.Flags().BoolVar(&syncNoBatch, "no-batch", false, "Create and update products one call at a time")
	syncCmd.Flags().StringVar(&syncEncoding, "encoding", "", "Fallback encoding for non-UTF-8 feeds (default windows-1251)")
	syncCmd.Flags().BoolVar(&syncShowSkips, "show-skips", false, "Include skipped records in the result table")
}

func runSync(cmd *cobra.Command, args []string) error {
	header := color.New(color.FgCyan, color.Bold)
	success := color.New(color.FgGreen)

	header.Println("\n  SYNCING FEED TO WOOCOMMERCE")
	fmt.Println("  " + strings.Repeat("─", 40))
	fmt.Println()

	cfg, err := loadConfig()
	if err != nil {
		color.Red("  Error: %v", err)
		return err
	}
	if syncMode != "" {
		cfg.Upload.UpdateMode = syncMode
		if err := cfg.Validate(); err != nil {
			color.Red("  Error: %v", err)
			return err
		}
	}
	if cmd.Flags().Changed("skip-existing") {
		cfg.Upload.SkipExisting = syncSkipExist
	}
	if cmd.Flags().Changed("limit") {
		cfg.Upload.MaxCount = syncLimit
	}
	if syncBatchSize > 0 {
		cfg.Upload.BatchSize = syncBatchSize
	}
	if cmd.Flags().Changed("dry-run") {
		cfg.Upload.DryRun = syncDryRun
	}
	if syncNoBatch {
		cfg.Upload.UseBatch = false
	}

	// Parse the whole feed up front so the progress bar has a total.
	feed, err := csvfeed.Open(args[0], csvfeed.Options{FallbackEncoding: syncEncoding})
	if err != nil {
		color.Red("  Error: %v", err)
		return err
	}
	rows, err := feed.All()
	if err != nil {
		color.Red("  Error: %v", err)
		return err
	}
	if len(rows) == 0 {
		color.Yellow("  Feed contains no data rows.")
		fmt.Println()
		return nil
	}

	color.Yellow("  Parsed %d rows from %s\n", len(rows), args[0])
	if cfg.Upload.DryRun {
		color.Yellow("  Dry run: no changes will be made\n")
	}
	fmt.Println()

	client, err := buildClient(cfg)
	if err != nil {
		color.Red("  Error: %v", err)
		return err
	}
	defer client.Close()

	store, err := buildStore(cfg)
	if err != nil {
		color.Red("  Error: %v", err)
		return err
	}
	defer store.Close()

	converter, err := images.NewConverter(cfg.Upload.MaxImageEdge)
	if err != nil {
		color.Red("  Error: %v", err)
		return err
	}
	defer converter.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var source engine.ImageSource = noImages{}
	if syncImagesDir != "" {
		if err := store.Connect(ctx); err != nil {
			color.Red("  Error: cannot reach image host: %v", err)
			return err
		}
		source = images.NewResolver(syncImagesDir, syncRemoteDir, store, converter)
	}

	bar := progressbar.NewOptions(len(rows),
		progressbar.OptionSetDescription("  Syncing products"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        color.GreenString("█"),
			SaucerHead:    color.GreenString("█"),
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionShowCount(),
	)

	eng := engine.New(client, source, engine.Options{
		UpdateMode:   engine.UpdateMode(cfg.Upload.UpdateMode),
		SkipExisting: cfg.Upload.SkipExisting,
		UseBatch:     cfg.Upload.UseBatch,
		BatchSize:    cfg.Upload.BatchSize,
		MaxCount:     cfg.Upload.MaxCount,
		DryRun:       cfg.Upload.DryRun,
		OnEvent: func(ev engine.Event) {
			if _, ok := ev.(engine.RecordCompleted); ok {
				bar.Add(1)
			}
		},
	})

	summary, runErr := eng.Run(ctx, rows)
	fmt.Println()
	fmt.Println()

	renderOutcomes(summary, syncShowSkips)

	log := runlog.NewStore("")
	if err := log.Load(); err == nil {
		log.Append(*summary)
	}

	if summary.Created > 0 {
		success.Printf("  ✓ Created %d products\n", summary.Created)
	}
	if summary.Updated > 0 {
		success.Printf("  ✓ Updated %d products\n", summary.Updated)
	}
	if summary.Skipped > 0 {
		color.Yellow("  – Skipped %d products\n", summary.Skipped)
	}
	if summary.Failed > 0 {
		color.Red("  ✗ Failed %d products\n", summary.Failed)
	}
	if runErr != nil {
		color.Red("  ✗ Run aborted: %s\n", summary.AbortReason)
	}
	fmt.Println()

	return runErr
}

// renderOutcomes prints the per-record result table. Skips are noisy
// on large feeds and hidden unless asked for.
func renderOutcomes(summary *models.RunSummary, showSkips bool) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Row", "SKU", "Action", "Detail"})
	table.SetBorder(false)
	table.SetHeaderColor(
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
	)

	rendered := 0
	for _, o := range summary.Outcomes {
		if o.Action == models.ActionSkip && !showSkips {
			continue
		}

		detail := o.Detail
		if o.Error != "" {
			detail = o.Error
		}
		if len(detail) > 60 {
			detail = detail[:57] + "..."
		}

		action := string(o.Action)
		switch o.Action {
		case models.ActionCreate:
			action = color.GreenString("create")
		case models.ActionUpdate:
			action = color.CyanString("update")
		case models.ActionSkip:
			action = color.YellowString("skip")
		case models.ActionFail:
			action = color.RedString("fail")
		}

		table.Append([]string{fmt.Sprintf("%d", o.Row), o.SKU, action, detail})
		rendered++
	}

	if rendered > 0 {
		table.Render()
		fmt.Println()
	}
}

// noImages is the image source used when no local image directory was
// given.
type noImages struct{}

func (noImages) Resolve(_ context.Context, _ string) (models.ResolvedImage, error) {
	return models.ResolvedImage{}, nil
}
