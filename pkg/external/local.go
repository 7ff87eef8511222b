package external

import (
	"bytes"
	"io"

	"github.com/aretw0/webflow/pkg/scope"
)

// Local is an in-process context backed by a buffer. The console runner and tests
// use it in place of HTTP.
type Local struct {
	response
	params      *ParameterMap
	session     *scope.SharedMap
	application *scope.SharedMap
	out         bytes.Buffer
	ajax        bool
}

// NewLocal builds a context over single valued parameters.
func NewLocal(params map[string]string) *Local {
	return &Local{
		params:      ParametersOf(params),
		session:     scope.NewSharedMap(nil),
		application: scope.NewSharedMap(nil),
	}
}

// SetAjax marks the request as a partial update request.
func (l *Local) SetAjax(ajax bool) *Local {
	l.ajax = ajax
	return l
}

// SetResponseAllowed overrides whether a response may be written, independently of
// completion. False simulates environments that can only answer with redirects.
func (l *Local) SetResponseAllowed(allowed bool) *Local {
	l.allowedOverride = &allowed
	return l
}

// SetSessionMap shares a session map across several Local contexts.
func (l *Local) SetSessionMap(m *scope.SharedMap) *Local {
	l.session = m
	return l
}

func (l *Local) RequestParameters() *ParameterMap { return l.params }

func (l *Local) SessionMap() *scope.SharedMap { return l.session }

func (l *Local) ApplicationMap() *scope.SharedMap { return l.application }

func (l *Local) IsAjaxRequest() bool { return l.ajax }

func (l *Local) ResponseWriter() io.Writer { return &l.out }

// Output returns everything written to the response.
func (l *Local) Output() string { return l.out.String() }

func (l *Local) FlowExecutionURL(flowID, key string) string {
	return ExecutionURL("", flowID, key)
}
