package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "grain",
	Short: "Session lifecycle and pleasure-vector engine",
	Long:  "Grain tracks bounded activity sessions through a five-state lifecycle, embeds them in a 16-dimensional pleasure space, and renders analytics findings into insights.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(weeklyCmd)
}
