package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check store and image host connectivity",
	Long: `Validate the configuration, then verify that the WooCommerce API
accepts the credentials and that the SFTP base path is reachable.`,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	header := color.New(color.FgCyan, color.Bold)

	header.Println("\n  CHECKING CONNECTIONS")
	fmt.Println("  " + strings.Repeat("─", 40))
	fmt.Println()

	cfg, err := loadConfig()
	if err != nil {
		color.Red("  Error: %v", err)
		return err
	}

	type check struct {
		name   string
		target string
		err    error
	}
	var checks []check

	// WooCommerce API
	client, err := buildClient(cfg)
	if err == nil {
		err = client.Ping(cmd.Context())
		client.Close()
	}
	checks = append(checks, check{"WooCommerce API", cfg.Store.URL, err})

	// SFTP image host
	store, err := buildStore(cfg)
	if err == nil {
		err = store.TestConnection(cmd.Context())
		store.Close()
	}
	checks = append(checks, check{"SFTP image host", fmt.Sprintf("%s@%s:%d", cfg.SFTP.User, cfg.SFTP.Host, cfg.SFTP.Port), err})

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Service", "Target", "Status"})
	table.SetBorder(false)
	table.SetHeaderColor(
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
	)

	failed := 0
	for _, c := range checks {
		status := color.GreenString("ok")
		if c.err != nil {
			msg := c.err.Error()
			if len(msg) > 50 {
				msg = msg[:47] + "..."
			}
			status = color.RedString(msg)
			failed++
		}
		table.Append([]string{c.name, c.target, status})
	}
	table.Render()
	fmt.Println()

	if failed > 0 {
		color.Red("  ✗ %d of %d checks failed\n", failed, len(checks))
		fmt.Println()
		return fmt.Errorf("%d checks failed", failed)
	}

	color.Green("  ✓ All checks passed\n")
	fmt.Println()
	return nil
}
