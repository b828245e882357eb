package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "rookery",
	Short: "Discover, cache, and install agent skills, workflows, and MCP servers",
	Long: `Rookery manages reusable agent resources - skills, workflows, and MCP
server configurations - across the tools that consume them.

Browse the marketplace, git repositories, local folders, or the global
cache; install into any supported provider by copy or link; uninstall
cleanly, optionally purging the cache.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("rookery %s (commit: %s, built: %s)\n", Version, Commit, Date)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
