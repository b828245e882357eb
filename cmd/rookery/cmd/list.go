package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rookery-dev/rookery/internal/core/backend"
	"github.com/rookery-dev/rookery/internal/core/resource"
)

var (
	listKind  string
	listQuery string
)

var listCmd = &cobra.Command{
	Use:   "list <ref>",
	Short: "List resources available from a backend",
	Long: `List resources from a marketplace, git repository, local folder, or the
global cache.

The reference selects the backend:
  marketplace              the configured marketplace
  cache                    the global cache
  owner/repo[/path]        a GitHub repository
  https://... / git@...    any git remote
  ./dir or /abs/dir        a local folder`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listKind, "kind", "k", "", "resource kind: skill, workflow, or mcp (default all)")
	listCmd.Flags().StringVarP(&listQuery, "query", "q", "", "substring filter on name or description")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	resolved, err := a.resolve(args[0])
	if err != nil {
		return err
	}

	kinds := resource.Kinds()
	if listKind != "" {
		k, err := resource.ParseKind(listKind)
		if err != nil {
			return err
		}
		kinds = []resource.Kind{k}
	}

	total := 0
	for _, kind := range kinds {
		if !resolved.Backend.Supports(kind) {
			continue
		}
		for d, err := range resolved.Backend.List(cmd.Context(), kind, backend.Query{Text: listQuery}) {
			if err != nil {
				return err
			}
			if resolved.NameFilter != "" && d.Name != resolved.NameFilter && d.ResourceID != resolved.NameFilter {
				continue
			}
			if total == 0 {
				fmt.Println(headerStyle.Render("KIND      RESOURCE"))
			}
			line := fmt.Sprintf("%s  %s", kindStyle.Render(fmt.Sprintf("%-8s", d.Kind)), d.Name)
			if d.Description != "" {
				line += "  " + dimStyle.Render(d.Description)
			}
			fmt.Println(line)
			total++
		}
	}

	if total == 0 {
		fmt.Println(dimStyle.Render("no resources found"))
	}
	return nil
}
