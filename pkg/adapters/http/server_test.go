package http_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/webflow"
	"github.com/aretw0/webflow/internal/testutils"
	"github.com/aretw0/webflow/pkg/action"
	webhttp "github.com/aretw0/webflow/pkg/adapters/http"
	"github.com/aretw0/webflow/pkg/binding/expression"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/dsl"
	"github.com/aretw0/webflow/pkg/engine"
	"github.com/aretw0/webflow/pkg/observability"
	"github.com/aretw0/webflow/pkg/registry"
)

func newHandler(t *testing.T, redirectOnPause bool, opts ...webhttp.Option) http.Handler {
	t.Helper()
	views := &testutils.ViewRecorder{}
	ext, err := action.NewExternalRedirect(expression.Literal("https://example.com/bye"))
	require.NoError(t, err)
	jump, err := action.NewFlowDefinitionRedirect(expression.Literal("other?x=1"))
	require.NoError(t, err)

	booking, err := dsl.New("booking").
		Input("guest", false).
		View("form", views.Factory("form")).
		On("submit", "done").
		On("leave", "away").
		On("jump", "jumped").Done().
		End("done").Output("guest", "flowScope.guest").Done().
		End("away").FinalResponse(ext).Done().
		End("jumped").FinalResponse(jump).Done().
		Build()
	require.NoError(t, err)
	other, err := dsl.New("other").View("landing", views.Factory("landing")).Go("end").Done().End("end").Done().Build()
	require.NoError(t, err)

	flows := registry.NewFlows()
	require.NoError(t, flows.Register(booking))
	require.NoError(t, flows.Register(other))

	exec, err := webflow.New(flows, webflow.WithExecutionAttributes(map[string]any{
		engine.AlwaysRedirectOnPauseAttribute: redirectOnPause,
	}))
	require.NoError(t, err)
	return webhttp.NewHandler(exec, opts...)
}

func do(h http.Handler, method, target string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// launch starts booking and returns the execution URL from the pause redirect.
func launch(t *testing.T, h http.Handler) string {
	t.Helper()
	w := do(h, http.MethodGet, "/flows/booking?guest=ada", nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	loc := w.Header().Get("Location")
	require.True(t, strings.HasPrefix(loc, "/flows/booking?execution=e"), loc)
	return loc
}

func TestHealth(t *testing.T) {
	w := do(newHandler(t, false), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestLaunch_RendersView(t *testing.T) {
	w := do(newHandler(t, false), http.MethodGet, "/flows/booking?guest=ada", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "form"), w.Body.String())

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == webhttp.SessionCookie {
			cookie = c
		}
	}
	assert.NotNil(t, cookie, "a session cookie is issued")
}

func TestPostRedirectGet(t *testing.T) {
	h := newHandler(t, true)
	loc := launch(t, h)

	w := do(h, http.MethodGet, loc, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "form"))

	w = do(h, http.MethodPost, loc, url.Values{"_eventId": {"submit"}})
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "done", body["outcome"])
	assert.Equal(t, map[string]any{"guest": "ada"}, body["output"])

	w = do(h, http.MethodGet, loc, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "an ended execution is gone")
}

func TestExternalRedirect(t *testing.T) {
	h := newHandler(t, true)
	loc := launch(t, h)

	w := do(h, http.MethodPost, loc, url.Values{"_eventId": {"leave"}})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://example.com/bye", w.Header().Get("Location"))
}

func TestFlowDefinitionRedirect(t *testing.T) {
	h := newHandler(t, true)
	loc := launch(t, h)

	w := do(h, http.MethodPost, loc, url.Values{"_eventId": {"jump"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/flows/other?x=1", w.Header().Get("Location"))
}

func TestAjaxRedirect(t *testing.T) {
	h := newHandler(t, true)
	req := httptest.NewRequest(http.MethodGet, "/flows/booking", nil)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Flow-Redirect-URL"), "/flows/booking?execution="))
}

func TestErrors(t *testing.T) {
	h := newHandler(t, false)

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"Unknown Flow", "/flows/nope", http.StatusNotFound},
		{"Bad Key", "/flows/booking?execution=garbage", http.StatusBadRequest},
		{"Unknown Conversation", "/flows/booking?execution=emissings1", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, do(h, http.MethodGet, tt.target, nil).Code)
		})
	}
}

func TestFailureAfterPartialRender_KeepsResponse(t *testing.T) {
	broken := engine.ActionFunc(func(rc engine.RequestContext) (*domain.Event, error) {
		if _, err := io.WriteString(rc.ExternalContext().ResponseWriter(), "partial"); err != nil {
			return nil, err
		}
		return nil, errors.New("template exploded")
	})
	flow, err := dsl.New("report").Action("build", broken).Go("end").Done().End("end").Done().Build()
	require.NoError(t, err)
	flows := registry.NewFlows()
	require.NoError(t, flows.Register(flow))
	exec, err := webflow.New(flows)
	require.NoError(t, err)
	h := webhttp.NewHandler(exec)

	w := do(h, http.MethodGet, "/flows/report", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "partial", w.Body.String())
}

func TestUnknownEvent_BadRequest(t *testing.T) {
	h := newHandler(t, true)
	loc := launch(t, h)

	w := do(h, http.MethodPost, loc, url.Values{"_eventId": {"bogus"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(h, http.MethodPost, loc, url.Values{"_eventId": {"submit"}})
	assert.Equal(t, http.StatusOK, w.Code, "a rejected event leaves the execution usable")
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := newHandler(t, true, webhttp.WithMetrics(observability.NewMetrics(reg)))
	loc := launch(t, h)
	do(h, http.MethodGet, loc, nil)
	do(h, http.MethodGet, "/flows/nope", nil)

	n, err := testutil.GatherAndCount(reg, "webflow_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 3, n, "launch/paused, resume/paused and launch/error series")
}
