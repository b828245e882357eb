package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	uninstallProvider string
	uninstallDir      string
	uninstallPurge    bool
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <resource-id>",
	Short: "Remove an installed resource from a provider",
	Args:  cobra.ExactArgs(1),
	RunE:  runUninstall,
}

func init() {
	uninstallCmd.Flags().StringVarP(&uninstallProvider, "provider", "p", "", "target provider (default: detected in --dir)")
	uninstallCmd.Flags().StringVarP(&uninstallDir, "dir", "d", ".", "provider directory")
	uninstallCmd.Flags().BoolVar(&uninstallPurge, "purge-cache", false, "also remove the resource's cache entry")
	rootCmd.AddCommand(uninstallCmd)
}

func runUninstall(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	prov, err := pickProvider(uninstallProvider, uninstallDir)
	if err != nil {
		return err
	}

	if err := a.installer.Uninstall(cmd.Context(), prov, args[0], uninstallPurge); err != nil {
		return err
	}
	fmt.Printf("%s %s\n", okStyle.Render("uninstalled"), args[0])
	return nil
}
