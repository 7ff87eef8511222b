package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/webflow/internal/cli"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Serves every flow of the project under /flows/{flowID}, rendering view states with the
HTML templates next to the definitions. Prometheus metrics are exposed on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Addr = addr
		}

		stack, err := cli.NewStack(cfg, newLogger(cfg))
		if err != nil {
			return err
		}
		defer stack.Close()
		return cli.Serve(cmd.Context(), stack, cfg.Addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Address to listen on (default from config, :8080)")
}
