package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "wcsync",
	Short: "WooCommerce Catalog Sync",
	Long: color.New(color.FgCyan, color.Bold).Sprint(`
__      _____ ___ _   _ _ __   ___
\ \ /\ / / __/ __| | | | '_ \ / __|
 \ V  V / (__\__ \ |_| | | | | (__
  \_/\_/ \___|___/\__, |_| |_|\___|
                  |___/
`) + `
WooCommerce Catalog Sync - supplier feed to storefront pipeline

Reads a supplier CSV export, publishes product images over SFTP and
reconciles the products into a WooCommerce store.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ~/.wcsync/config.yaml)")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(imagesCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(historyCmd)
}
