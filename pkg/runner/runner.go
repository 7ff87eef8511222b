package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/webflow"
	"github.com/aretw0/webflow/internal/logging"
	"github.com/aretw0/webflow/pkg/engine"
	"github.com/aretw0/webflow/pkg/external"
	"github.com/aretw0/webflow/pkg/scope"
	"github.com/aretw0/webflow/pkg/view"
)

// EventParameter is the request parameter the first word of a line is sent as.
const EventParameter = view.EventIDParameter

// Runner handles the console loop around an Executor using the provided IO.
// This allows for easy testing and integration with different frontends.
type Runner struct {
	executor     *webflow.Executor
	input        io.Reader
	output       io.Writer
	logger       *slog.Logger
	prompt       string
	maxRedirects int

	reader  *bufio.Reader
	session *scope.SharedMap
}

// New creates a Runner with default Stdin/Stdout.
func New(executor *webflow.Executor, opts ...Option) *Runner {
	r := &Runner{
		executor:     executor,
		input:        os.Stdin,
		output:       os.Stdout,
		logger:       logging.NewNop(),
		prompt:       "> ",
		maxRedirects: DefaultMaxRedirects,
		session:      scope.NewSharedMap(nil),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.reader = bufio.NewReader(r.input)
	return r
}

// Run launches flowID and drives it until the flow ends, an external redirect leaves
// the console, or the input is exhausted. In the last case the execution stays paused
// and the returned result carries its key.
func (r *Runner) Run(ctx context.Context, flowID string, input map[string]any) (*webflow.Result, error) {
	ext := r.local(nil)
	res, err := r.executor.Launch(ctx, flowID, input, ext)
	if err != nil {
		return nil, err
	}
	r.flush(ext)

	redirects := 0
	for {
		if res.Redirect.Kind != external.NoRedirect {
			redirects++
			if redirects > r.maxRedirects {
				return res, fmt.Errorf("more than %d consecutive redirects", r.maxRedirects)
			}
			next, done, err := r.follow(ctx, res)
			if err != nil || done {
				return res, err
			}
			res = next
			continue
		}
		redirects = 0
		if !res.Paused {
			return res, nil
		}

		line, err := r.readLine(ctx)
		if errors.Is(err, io.EOF) {
			r.logger.Debug("input closed", "flow_id", res.FlowID, "execution", res.Key)
			return res, nil
		}
		if err != nil {
			return res, err
		}

		ext = r.local(ParseCommand(line))
		next, err := r.executor.Resume(ctx, res.Key, ext)
		var noMatch *engine.NoMatchingTransitionError
		if errors.As(err, &noMatch) {
			fmt.Fprintf(r.output, "no transition for %q in %q\n", noMatch.EventID, noMatch.StateID)
			continue
		}
		if err != nil {
			return res, err
		}
		r.flush(ext)
		res = next
	}
}

// follow performs the redirect recorded in res. done is true when the redirect
// leaves the console.
func (r *Runner) follow(ctx context.Context, res *webflow.Result) (*webflow.Result, bool, error) {
	ext := r.local(nil)
	var (
		next *webflow.Result
		err  error
	)
	switch res.Redirect.Kind {
	case external.FlowExecutionRedirect:
		next, err = r.executor.Resume(ctx, res.Key, ext)
	case external.FlowDefinitionRedirect:
		r.logger.Debug("starting redirected flow", "flow_id", res.Redirect.FlowID)
		next, err = r.executor.Launch(ctx, res.Redirect.FlowID, res.Redirect.Input, ext)
	case external.ExternalRedirect:
		fmt.Fprintf(r.output, "-> %s\n", res.Redirect.Location)
		return res, true, nil
	default:
		return res, true, fmt.Errorf("unsupported redirect %s", res.Redirect.Kind)
	}
	if err != nil {
		return nil, true, err
	}
	r.flush(ext)
	return next, false, nil
}

func (r *Runner) local(params map[string]string) *external.Local {
	return external.NewLocal(params).SetSessionMap(r.session)
}

func (r *Runner) flush(ext *external.Local) {
	out := ext.Output()
	if out == "" {
		return
	}
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	fmt.Fprint(r.output, out)
}

type line struct {
	text string
	err  error
}

// readLine prompts and reads one sanitized line. A line ending in EOF is still
// returned; the next read reports io.EOF.
func (r *Runner) readLine(ctx context.Context) (string, error) {
	for {
		if r.prompt != "" {
			fmt.Fprint(r.output, r.prompt)
		}
		ch := make(chan line, 1)
		go func() {
			text, err := r.reader.ReadString('\n')
			ch <- line{text: text, err: err}
		}()

		var got line
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case got = <-ch:
		}
		if got.err != nil && (!errors.Is(got.err, io.EOF) || strings.TrimSpace(got.text) == "") {
			return "", got.err
		}

		clean, err := SanitizeLine(got.text, 0)
		if err != nil {
			fmt.Fprintf(r.output, "rejected: %v\n", err)
			continue
		}
		return clean, nil
	}
}
