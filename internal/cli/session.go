package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"text/template"

	"github.com/aretw0/webflow/internal/presentation/tui"
	"github.com/aretw0/webflow/pkg/definition"
	"github.com/aretw0/webflow/pkg/engine"
	"github.com/aretw0/webflow/pkg/runner"
)

// RunOptions configures a console session.
type RunOptions struct {
	// FlowID to launch; empty picks the entry point of the flows directory.
	FlowID string
	Input  map[string]any
	In     io.Reader
	Out    io.Writer
	// Quiet suppresses the banner and system messages.
	Quiet bool
}

// ConsoleViews renders view states with the markdown templates (*.md) of dir, one
// template per file named after it. Without markdown templates it returns no option
// and the HTML templates are used as they are.
func ConsoleViews(dir string, render tui.ContentRenderer) ([]definition.Option, error) {
	pages, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil || len(pages) == 0 {
		return nil, err
	}
	t := template.New("console")
	for _, page := range pages {
		data, err := os.ReadFile(page)
		if err != nil {
			return nil, err
		}
		if _, err := t.New(stem(page)).Parse(string(data)); err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
	}
	resolver := func(name string, _ *definition.StateModel) (engine.ViewFactory, error) {
		f, err := tui.NewMarkdownViewFactory(t, name, render)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
	return []definition.Option{definition.WithViewResolver(resolver)}, nil
}

// RunSession drives one flow from the console until it ends or the input closes.
func RunSession(ctx context.Context, stack *Stack, opts RunOptions) error {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	flowID := opts.FlowID
	if flowID == "" {
		flowID = EntryPoint(stack.Config.FlowsDir, stack.Flows.IDs())
	}
	if flowID == "" {
		return fmt.Errorf("no flow to run in %s", stack.Config.FlowsDir)
	}

	if !opts.Quiet {
		tui.PrintBanner(opts.Out, flowID)
	}

	r := runner.New(stack.Executor,
		runner.WithInput(opts.In),
		runner.WithOutput(opts.Out),
		runner.WithLogger(stack.Logger),
	)
	res, err := r.Run(ctx, flowID, opts.Input)
	if err != nil {
		if ctx.Err() != nil {
			printSystemMessage(opts, "Interrupted.")
			return nil
		}
		return err
	}

	switch {
	case res.Outcome != nil:
		printSystemMessage(opts, "Finished with outcome '%s' %v", res.Outcome.ID, res.Outcome.Output)
	case res.Paused:
		printSystemMessage(opts, "Paused at execution '%s'.", res.Key)
	}
	return nil
}

// EntryPoint picks the flow to launch: the only one, then "main", then the
// one named after the directory.
func EntryPoint(dir string, ids []string) string {
	if len(ids) == 1 {
		return ids[0]
	}
	if slices.Contains(ids, "main") {
		return "main"
	}
	if abs, err := filepath.Abs(dir); err == nil {
		if name := filepath.Base(abs); slices.Contains(ids, name) {
			return name
		}
	}
	return ""
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(opts RunOptions, format string, args ...any) {
	if opts.Quiet {
		return
	}
	fmt.Fprintf(opts.Out, ">>> %s\n", fmt.Sprintf(format, args...))
}
