package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/webflow/internal/cli"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [flow]",
	Short: "Run a flow in the terminal",
	Long: `Launches a flow and drives it from standard input: each line is an event id
followed by name=value parameters. View states render their markdown template (*.md).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		style, _ := cmd.Flags().GetString("style")
		views, err := consoleViews(cfg.FlowsDir, style)
		if err != nil {
			return err
		}
		stack, err := cli.NewStack(cfg, newLogger(cfg), views...)
		if err != nil {
			return err
		}
		defer stack.Close()

		opts := cli.RunOptions{In: cmd.InOrStdin(), Out: cmd.OutOrStdout()}
		if len(args) > 0 {
			opts.FlowID = args[0]
		}
		opts.Quiet, _ = cmd.Flags().GetBool("quiet")
		input, _ := cmd.Flags().GetStringToString("input")
		if len(input) > 0 {
			opts.Input = make(map[string]any, len(input))
			for k, v := range input {
				opts.Input[k] = v
			}
		}
		return cli.RunSession(cmd.Context(), stack, opts)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringToStringP("input", "i", nil, "Flow input as name=value pairs")
	runCmd.Flags().String("style", "auto", "Markdown style: auto, dark, light, notty or plain")
	runCmd.Flags().BoolP("quiet", "q", false, "Hide the banner and system messages")
}
