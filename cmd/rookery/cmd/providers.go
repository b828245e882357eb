package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rookery-dev/rookery/internal/core/provider"
)

var providersDir string

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List supported providers and which are detected in a directory",
	RunE:  runProviders,
}

func init() {
	providersCmd.Flags().StringVarP(&providersDir, "dir", "d", ".", "directory to detect providers in")
	rootCmd.AddCommand(providersCmd)
}

func runProviders(cmd *cobra.Command, args []string) error {
	abs, err := filepath.Abs(providersDir)
	if err != nil {
		return err
	}

	detected := make(map[string]bool)
	for _, t := range provider.DetectInFolder(abs) {
		detected[t.Name()] = true
	}

	fmt.Println(headerStyle.Render("PROVIDER        STATUS"))
	for _, t := range provider.All() {
		status := dimStyle.Render("available")
		if detected[t.Name()] {
			status = okStyle.Render("detected")
		}
		fmt.Printf("%-15s %s\n", t.Name(), status)
	}
	return nil
}
