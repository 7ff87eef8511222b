// Package external defines how the flow engine talks to the environment that called it.
//
// The engine never parses HTTP. It reads request parameters, writes to the response
// writer and records redirect requests on an ExternalContext; the caller (the HTTP
// adapter, the console runner, a test) acts on what was recorded once the request ends.
package external

import (
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/scope"
)

// Context is the engine's view of the calling environment for one request.
type Context interface {
	RequestParameters() *ParameterMap
	SessionMap() *scope.SharedMap
	ApplicationMap() *scope.SharedMap

	IsAjaxRequest() bool
	ResponseWriter() io.Writer

	IsResponseAllowed() bool
	IsResponseComplete() bool
	RecordResponseComplete()
	IsResponseCompleteFlowExecutionRedirect() bool

	RequestFlowExecutionRedirect() error
	RequestFlowDefinitionRedirect(flowID string, input map[string]any) error
	RequestExternalRedirect(location string) error
	RequestRedirectInPopup() error

	FlowExecutionURL(flowID, key string) string
}

// Redirect describes the redirect recorded during a request, if any.
type Redirect struct {
	Kind     RedirectKind
	FlowID   string
	Input    map[string]any
	Location string
	Popup    bool
}

type RedirectKind int

const (
	NoRedirect RedirectKind = iota
	FlowExecutionRedirect
	FlowDefinitionRedirect
	ExternalRedirect
)

func (k RedirectKind) String() string {
	switch k {
	case FlowExecutionRedirect:
		return "flow_execution"
	case FlowDefinitionRedirect:
		return "flow_definition"
	case ExternalRedirect:
		return "external"
	}
	return "none"
}

// RedirectRecorder is implemented by contexts that expose their recorded redirect.
type RedirectRecorder interface {
	Redirect() Redirect
}

var errRedirectAlreadyRequested = errors.New("a redirect has already been requested")

// response tracks response completion and redirect requests. Both HTTP and Local
// contexts embed it.
type response struct {
	complete        bool
	allowedOverride *bool
	redirect        Redirect
}

func (r *response) IsResponseAllowed() bool {
	if r.allowedOverride != nil {
		return *r.allowedOverride
	}
	return !r.complete
}

func (r *response) IsResponseComplete() bool { return r.complete }

func (r *response) RecordResponseComplete() { r.complete = true }

func (r *response) IsResponseCompleteFlowExecutionRedirect() bool {
	return r.redirect.Kind == FlowExecutionRedirect
}

func (r *response) RequestFlowExecutionRedirect() error {
	return r.record(Redirect{Kind: FlowExecutionRedirect})
}

func (r *response) RequestFlowDefinitionRedirect(flowID string, input map[string]any) error {
	if flowID == "" {
		return fmt.Errorf("flow definition redirect: %w: empty flow id", domain.ErrIllegalState)
	}
	return r.record(Redirect{Kind: FlowDefinitionRedirect, FlowID: flowID, Input: input})
}

func (r *response) RequestExternalRedirect(location string) error {
	if location == "" {
		return fmt.Errorf("external redirect: %w: empty location", domain.ErrIllegalState)
	}
	return r.record(Redirect{Kind: ExternalRedirect, Location: location})
}

// RequestRedirectInPopup asks for the redirect already requested to open in a popup.
func (r *response) RequestRedirectInPopup() error {
	if r.redirect.Kind == NoRedirect {
		return fmt.Errorf("popup: %w: no redirect has been requested", domain.ErrIllegalState)
	}
	r.redirect.Popup = true
	return nil
}

func (r *response) Redirect() Redirect { return r.redirect }

func (r *response) record(rd Redirect) error {
	if r.redirect.Kind != NoRedirect {
		return fmt.Errorf("%w: %w", domain.ErrIllegalState, errRedirectAlreadyRequested)
	}
	r.redirect = rd
	r.complete = true
	return nil
}

// ExecutionURL builds "<base>/<flowID>?execution=<key>".
func ExecutionURL(base, flowID, key string) string {
	return base + "/" + url.PathEscape(flowID) + "?execution=" + url.QueryEscape(key)
}

// DefinitionURL builds "<base>/<flowID>" with input rendered as query parameters.
func DefinitionURL(base, flowID string, input map[string]any) string {
	u := base + "/" + url.PathEscape(flowID)
	if len(input) == 0 {
		return u
	}
	q := url.Values{}
	for k, v := range input {
		q.Set(k, fmt.Sprint(v))
	}
	return u + "?" + q.Encode()
}
