package cmd

import (
	"github.com/spf13/cobra"
)

var (
	openProvider string
	openDir      string
)

// openCmd is the URL-scheme entry point: the OS hands rookery a
// "rookery://install?ref=..." link and this resolves which backend and
// resource the reference names, then installs it.
var openCmd = &cobra.Command{
	Use:   "open <rookery-url or ref>",
	Short: "Handle a rookery:// link by installing the referenced resource",
	Args:  cobra.ExactArgs(1),
	RunE:  runOpen,
}

func init() {
	openCmd.Flags().StringVarP(&openProvider, "provider", "p", "", "target provider (default: detected in --dir)")
	openCmd.Flags().StringVarP(&openDir, "dir", "d", ".", "provider directory")
	rootCmd.AddCommand(openCmd)
}

func runOpen(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	return runInstall(cmd.Context(), a, installArgs{
		ref:      args[0],
		provider: openProvider,
		dir:      openDir,
	})
}
