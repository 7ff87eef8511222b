package runner

import (
	"io"
	"log/slog"
)

// DefaultMaxRedirects bounds how many redirects are followed between two inputs.
const DefaultMaxRedirects = 8

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithInput sets where commands are read from.
func WithInput(in io.Reader) Option {
	return func(r *Runner) {
		r.input = in
	}
}

// WithOutput sets where views and prompts are written.
func WithOutput(out io.Writer) Option {
	return func(r *Runner) {
		r.output = out
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithPrompt replaces the "> " prompt. An empty prompt prints nothing.
func WithPrompt(prompt string) Option {
	return func(r *Runner) {
		r.prompt = prompt
	}
}

// WithMaxRedirects bounds consecutive redirects.
func WithMaxRedirects(n int) Option {
	return func(r *Runner) {
		r.maxRedirects = n
	}
}
