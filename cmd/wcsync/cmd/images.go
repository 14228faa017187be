package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var uploadRemoteDir string

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "Manage product images",
	Long:  `Upload and inspect product images on the SFTP host.`,
}

var uploadCmd = &cobra.Command{
	Use:   "upload [directory]",
	Short: "Upload a directory of images",
	Long: `Upload every image in a local directory to the SFTP host, skipping
files that are already present with the same content.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVar(&uploadRemoteDir, "remote-dir", "products", "Remote directory under the SFTP base path")

	imagesCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	header := color.New(color.FgCyan, color.Bold)
	success := color.New(color.FgGreen)

	header.Println("\n  UPLOADING IMAGES")
	fmt.Println("  " + strings.Repeat("─", 40))
	fmt.Println()

	cfg, err := loadConfig()
	if err != nil {
		color.Red("  Error: %v", err)
		return err
	}

	store, err := buildStore(cfg)
	if err != nil {
		color.Red("  Error: %v", err)
		return err
	}
	defer store.Close()

	if err := store.Connect(cmd.Context()); err != nil {
		color.Red("  Error: cannot reach image host: %v", err)
		return err
	}

	color.Yellow("  Uploading %s to %s/%s\n\n", args[0], cfg.SFTP.BasePath, uploadRemoteDir)

	uploaded, errs := store.UploadDirectory(cmd.Context(), args[0], uploadRemoteDir)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"File", "URL"})
	table.SetBorder(false)
	table.SetHeaderColor(
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
	)

	files := make([]string, 0, len(uploaded))
	for f := range uploaded {
		files = append(files, f)
	}
	sort.Strings(files)
	for _, f := range files {
		table.Append([]string{filepath.Base(f), uploaded[f]})
	}
	if len(files) > 0 {
		table.Render()
		fmt.Println()
	}

	if len(uploaded) > 0 {
		success.Printf("  ✓ Uploaded %d images\n", len(uploaded))
	}
	if len(errs) > 0 {
		color.Red("  ✗ Failed to upload %d images\n", len(errs))
		for _, e := range errs {
			color.Red("    %v", e)
		}
	}
	fmt.Println()

	if len(errs) > 0 {
		return fmt.Errorf("%d uploads failed", len(errs))
	}
	return nil
}
