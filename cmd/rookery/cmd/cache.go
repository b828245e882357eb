package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rookery-dev/rookery/internal/core/backend"
	"github.com/rookery-dev/rookery/internal/core/resource"
)

var cacheKind string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the global resource cache",
}

var cacheLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List cached resources",
	RunE:  runCacheLs,
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge <kind> <source-id> <resource-id>",
	Short: "Remove one entry from the cache",
	Args:  cobra.ExactArgs(3),
	RunE:  runCachePurge,
}

func init() {
	cacheLsCmd.Flags().StringVarP(&cacheKind, "kind", "k", "", "resource kind: skill, workflow, or mcp (default all)")
	cacheCmd.AddCommand(cacheLsCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheLs(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	kinds := resource.Kinds()
	if cacheKind != "" {
		k, err := resource.ParseKind(cacheKind)
		if err != nil {
			return err
		}
		kinds = []resource.Kind{k}
	}

	total := 0
	for _, kind := range kinds {
		for d, err := range a.cache.List(cmd.Context(), kind, backend.Query{}) {
			if err != nil {
				return err
			}
			if total == 0 {
				fmt.Println(headerStyle.Render("KIND      SOURCE / RESOURCE"))
			}
			fmt.Printf("%s  %s / %s  %s\n",
				kindStyle.Render(fmt.Sprintf("%-8s", d.Kind)),
				d.SourceID, d.ResourceID,
				dimStyle.Render("fetched "+d.InstalledAt.Format("2006-01-02 15:04")))
			total++
		}
	}
	if total == 0 {
		fmt.Println(dimStyle.Render("cache is empty"))
	}
	return nil
}

func runCachePurge(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	kind, err := resource.ParseKind(args[0])
	if err != nil {
		return err
	}
	key := resource.Key{Kind: kind, SourceID: args[1], ResourceID: args[2]}
	if err := a.cache.Purge(key); err != nil {
		return err
	}
	fmt.Printf("%s %s/%s/%s\n", okStyle.Render("purged"), kind, args[1], args[2])
	return nil
}
