/*
Package runner drives a flow from a line-oriented console.

Each line typed by the user becomes one request: the first word is the event id and
the remaining "name=value" words are request parameters. An empty line refreshes the
current view. Redirects requested by the flow are followed without user input.

# Usage

	r := runner.New(executor,
		runner.WithInput(os.Stdin),
		runner.WithOutput(os.Stdout),
	)

	res, err := r.Run(ctx, "checkout", nil)
*/
package runner
