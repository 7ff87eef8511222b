package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/webflow/internal/config"
	"github.com/aretw0/webflow/internal/logging"
	"github.com/aretw0/webflow/internal/presentation/tui"
)

const mainFlow = `id: main
states:
  - id: ask
    type: view
    transitions:
      - on: next
        to: done
  - id: done
    type: end
`

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func newStack(t *testing.T, cfg config.Config, opts ...func(*config.Config)) *Stack {
	t.Helper()
	for _, opt := range opts {
		opt(&cfg)
	}
	stack, err := NewStack(cfg, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = stack.Close() })
	return stack
}

func TestNewStack_ServesFlows(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.yaml": mainFlow,
		"ask.html":  "<h1>Ask</h1>",
	})
	cfg := config.Default()
	cfg.FlowsDir = dir
	stack := newStack(t, cfg)

	assert.Equal(t, []string{"main"}, stack.Flows.IDs())
	require.NotNil(t, stack.Metrics)

	srv := httptest.NewServer(Handler(stack))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/flows/main")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "<h1>Ask</h1>")

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "webflow_request_duration_seconds")
}

func TestNewStack_WithoutMetrics(t *testing.T) {
	dir := writeFiles(t, map[string]string{"main.yaml": mainFlow, "ask.html": "ask"})
	cfg := config.Default()
	cfg.FlowsDir = dir
	cfg.Metrics = false
	stack := newStack(t, cfg)

	w := httptest.NewRecorder()
	Handler(stack).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNewStack_BoltBackend(t *testing.T) {
	dir := writeFiles(t, map[string]string{"main.yaml": mainFlow, "ask.html": "ask"})
	cfg := config.Default()
	cfg.FlowsDir = dir
	cfg.Store.Backend = config.StoreBolt
	cfg.Store.Bolt.Path = filepath.Join(t.TempDir(), "conversations.db")
	cfg.EncryptionKey = strings.Repeat("ab", 32)
	stack := newStack(t, cfg)

	res, err := runSession(t, stack, "")
	require.NoError(t, err)
	assert.Contains(t, res, "Paused at execution 'e")
	assert.FileExists(t, cfg.Store.Bolt.Path)
}

// runSession runs the entry flow with input and returns what was printed.
func runSession(t *testing.T, stack *Stack, input string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := RunSession(context.Background(), stack, RunOptions{In: strings.NewReader(input), Out: &out})
	return out.String(), err
}

func TestNewStack_InvalidFlowFails(t *testing.T) {
	dir := writeFiles(t, map[string]string{"main.yaml": "id: main\nstates: []\n"})
	cfg := config.Default()
	cfg.FlowsDir = dir

	_, err := NewStack(cfg, logging.NewNop())
	assert.Error(t, err)
}

func TestNewStack_InlineFlows(t *testing.T) {
	dir := writeFiles(t, map[string]string{"main.yaml": mainFlow, "ask.html": "<h1>Ask</h1>"})
	cfg := config.Default()
	cfg.FlowsDir = dir
	cfg.Flows = map[string]string{"survey": strings.Replace(mainFlow, "id: main", "id: survey", 1)}
	stack := newStack(t, cfg)

	assert.ElementsMatch(t, []string{"main", "survey"}, stack.Flows.IDs())

	w := httptest.NewRecorder()
	Handler(stack).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/flows/survey", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<h1>Ask</h1>")

	cfg.Flows = map[string]string{"broken": "id: broken\n"}
	_, err := NewStack(cfg, logging.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inline flows")
}

func TestRunSession_MarkdownViews(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.yaml": mainFlow,
		"ask.md":    "# Ask\nEvents: {{range .events}}[{{.}}] {{end}}",
	})
	views, err := ConsoleViews(dir, tui.Plain)
	require.NoError(t, err)
	require.Len(t, views, 1)

	cfg := config.Default()
	cfg.FlowsDir = dir
	stack, err := NewStack(cfg, logging.NewNop(), views...)
	require.NoError(t, err)
	defer stack.Close()

	out, err := runSession(t, stack, "next\n")
	require.NoError(t, err)
	assert.Contains(t, out, "# Ask\nEvents: [next]")
	assert.Contains(t, out, ">>> Finished with outcome 'done'")
}

func TestRunSession_Quiet(t *testing.T) {
	dir := writeFiles(t, map[string]string{"main.yaml": mainFlow, "ask.md": "ask"})
	views, err := ConsoleViews(dir, nil)
	require.NoError(t, err)
	cfg := config.Default()
	cfg.FlowsDir = dir
	stack, err := NewStack(cfg, logging.NewNop(), views...)
	require.NoError(t, err)
	defer stack.Close()

	var out bytes.Buffer
	err = RunSession(context.Background(), stack, RunOptions{FlowID: "main", In: strings.NewReader("next\n"), Out: &out, Quiet: true})
	require.NoError(t, err)
	assert.NotContains(t, out.String(), ">>>")
}

func TestConsoleViews_NoMarkdown(t *testing.T) {
	views, err := ConsoleViews(t.TempDir(), nil)
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestDetermineEntryPoint(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shop")
	require.NoError(t, os.Mkdir(dir, 0o755))

	tests := []struct {
		name string
		ids  []string
		want string
	}{
		{"Single Flow", []string{"checkout"}, "checkout"},
		{"Main", []string{"checkout", "main"}, "main"},
		{"Directory Name", []string{"checkout", "shop"}, "shop"},
		{"Ambiguous", []string{"checkout", "refund"}, ""},
		{"Empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EntryPoint(dir, tt.ids))
		})
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	dir := writeFiles(t, map[string]string{"main.yaml": mainFlow, "ask.html": "ask"})
	cfg := config.Default()
	cfg.FlowsDir = dir
	stack := newStack(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, Serve(ctx, stack, "127.0.0.1:0"))
}
