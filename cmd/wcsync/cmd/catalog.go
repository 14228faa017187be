package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/mytua/wcsync/internal/woocommerce"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the store catalog",
}

var lookupCmd = &cobra.Command{
	Use:   "lookup [sku...]",
	Short: "Look up products by SKU",
	Long:  `Show the current catalog state of one or more SKUs.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLookup,
}

func init() {
	catalogCmd.AddCommand(lookupCmd)
}

func runLookup(cmd *cobra.Command, args []string) error {
	header := color.New(color.FgCyan, color.Bold)

	header.Println("\n  CATALOG LOOKUP")
	fmt.Println("  " + strings.Repeat("─", 40))
	fmt.Println()

	cfg, err := loadConfig()
	if err != nil {
		color.Red("  Error: %v", err)
		return err
	}

	client, err := buildClient(cfg)
	if err != nil {
		color.Red("  Error: %v", err)
		return err
	}
	defer client.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"SKU", "ID", "Name", "Price", "Stock", "Images"})
	table.SetBorder(false)
	table.SetHeaderColor(
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
	)

	missing := 0
	for _, sku := range args {
		entry, err := client.FindBySKU(cmd.Context(), sku)
		if err != nil {
			if errors.Is(err, woocommerce.ErrNotFound) {
				table.Append([]string{sku, "-", color.YellowString("not found"), "-", "-", "-"})
				missing++
				continue
			}
			color.Red("  Error: %v", err)
			return err
		}

		name := entry.Name
		if len(name) > 30 {
			name = name[:27] + "..."
		}
		stock := "-"
		if entry.Stock != nil {
			stock = fmt.Sprintf("%d", *entry.Stock)
		}
		table.Append([]string{
			entry.SKU,
			fmt.Sprintf("%d", entry.RemoteID),
			name,
			entry.Price,
			stock,
			fmt.Sprintf("%d", len(entry.ImageURLs)),
		})
	}
	table.Render()
	fmt.Println()

	if missing > 0 {
		color.Yellow("  %d of %d SKUs not in the catalog\n", missing, len(args))
		fmt.Println()
	}
	return nil
}
