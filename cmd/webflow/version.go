package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/webflow"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of webflow",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "webflow version %s\n", strings.TrimSpace(webflow.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
