// Package app provides the entry point for the repository resolver application.
package app

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sdkforge/repo-resolver/internal/logger"
	"github.com/sdkforge/repo-resolver/internal/versions"
)

var rootCmd = &cobra.Command{
	Use:               "repo-resolver",
	DisableAutoGenTag: true,
	Short:             "Repository source resolution engine",
	Long: `repo-resolver fetches remote package-index documents, validates them
against the supported schema versions, and resolves them into typed
package lists.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.Initialize(viper.GetBool("debug"))
	},
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			logger.Errorf("Error displaying help: %v", err)
		}
	},
}

// NewRootCmd creates a new root command for the resolver.
func NewRootCmd() *cobra.Command {
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	if err != nil {
		logger.Errorf("Error binding debug flag: %v", err)
	}

	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)

	return rootCmd
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		info := versions.GetVersionInfo()
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			logger.Errorf("Error retrieving format flag: %v", err)
			return
		}

		if format == "json" {
			output, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				logger.Errorf("Error formatting version info as JSON: %v", err)
				return
			}
			fmt.Println(string(output))
		} else {
			fmt.Printf("repo-resolver %s (commit %s, built %s, %s, %s)\n",
				info.Version, info.Commit, info.BuildDate, info.GoVersion, info.Platform)
		}
	},
}

func init() {
	versionCmd.Flags().String("format", "", "Output format (json)")
}
