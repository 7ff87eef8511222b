package external

import (
	"io"
	"net/http"
	"strings"

	"github.com/aretw0/webflow/pkg/scope"
)

// HTTPContext adapts one net/http request. Redirects are only recorded; the caller
// writes the redirect response after the engine returns.
type HTTPContext struct {
	response
	req         *http.Request
	w           http.ResponseWriter
	params      *ParameterMap
	session     *scope.SharedMap
	application *scope.SharedMap
	basePath    string
}

// HTTPOption configures an HTTPContext.
type HTTPOption func(*HTTPContext)

// WithBasePath sets the prefix used for execution URLs, e.g. "/flows".
func WithBasePath(base string) HTTPOption {
	return func(c *HTTPContext) {
		c.basePath = strings.TrimSuffix(base, "/")
	}
}

// WithSessionMap sets the map exposed as the session scope.
func WithSessionMap(m *scope.SharedMap) HTTPOption {
	return func(c *HTTPContext) {
		c.session = m
	}
}

// WithApplicationMap sets the map exposed as the application scope.
func WithApplicationMap(m *scope.SharedMap) HTTPOption {
	return func(c *HTTPContext) {
		c.application = m
	}
}

// NewHTTPContext parses the request form and wraps w.
func NewHTTPContext(w http.ResponseWriter, r *http.Request, opts ...HTTPOption) *HTTPContext {
	_ = r.ParseForm()
	c := &HTTPContext{
		req:    r,
		w:      w,
		params: NewParameterMap(r.Form),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.session == nil {
		c.session = scope.NewSharedMap(nil)
	}
	if c.application == nil {
		c.application = scope.NewSharedMap(nil)
	}
	return c
}

func (c *HTTPContext) Request() *http.Request { return c.req }

func (c *HTTPContext) RequestParameters() *ParameterMap { return c.params }

func (c *HTTPContext) SessionMap() *scope.SharedMap { return c.session }

func (c *HTTPContext) ApplicationMap() *scope.SharedMap { return c.application }

// IsAjaxRequest recognises XMLHttpRequest and fetch based partial update requests.
func (c *HTTPContext) IsAjaxRequest() bool {
	if c.req.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	return strings.Contains(c.req.Header.Get("Accept"), "type=ajax")
}

func (c *HTTPContext) ResponseWriter() io.Writer {
	if c.w.Header().Get("Content-Type") == "" {
		c.w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	return c.w
}

func (c *HTTPContext) FlowExecutionURL(flowID, key string) string {
	return ExecutionURL(c.basePath, flowID, key)
}
