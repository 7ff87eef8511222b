package action

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aretw0/webflow/pkg/binding/expression"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/engine"
)

var errNilExpression = errors.New("expression is required")

// ExternalRedirect sends the client to an arbitrary location.
type ExternalRedirect struct {
	location expression.Expression
}

// NewExternalRedirect creates the action; location evaluates to the target URL.
func NewExternalRedirect(location expression.Expression) (*ExternalRedirect, error) {
	if location == nil {
		return nil, fmt.Errorf("external redirect: %w", errNilExpression)
	}
	return &ExternalRedirect{location: location}, nil
}

func (a *ExternalRedirect) Execute(rc engine.RequestContext) (*domain.Event, error) {
	location, err := expression.String(a.location, rc)
	if err != nil {
		return nil, err
	}
	if err := rc.ExternalContext().RequestExternalRedirect(location); err != nil {
		return nil, err
	}
	return engine.Success("externalRedirect"), nil
}

// FlowDefinitionRedirect starts a new execution of another flow. The expression yields
// "flowID" or "flowID?name=value&...", the query becoming the new flow's input.
type FlowDefinitionRedirect struct {
	target expression.Expression
}

func NewFlowDefinitionRedirect(target expression.Expression) (*FlowDefinitionRedirect, error) {
	if target == nil {
		return nil, fmt.Errorf("flow definition redirect: %w", errNilExpression)
	}
	return &FlowDefinitionRedirect{target: target}, nil
}

func (a *FlowDefinitionRedirect) Execute(rc engine.RequestContext) (*domain.Event, error) {
	raw, err := expression.String(a.target, rc)
	if err != nil {
		return nil, err
	}
	flowID, input, err := ParseFlowRedirect(raw)
	if err != nil {
		return nil, err
	}
	if err := rc.ExternalContext().RequestFlowDefinitionRedirect(flowID, input); err != nil {
		return nil, err
	}
	return engine.Success("flowDefinitionRedirect"), nil
}

// ParseFlowRedirect splits "flowID?name=value" into the flow id and its input.
// Repeated names keep their first value.
func ParseFlowRedirect(raw string) (string, map[string]any, error) {
	flowID, query, _ := strings.Cut(raw, "?")
	flowID = strings.TrimSpace(flowID)
	if flowID == "" {
		return "", nil, fmt.Errorf("flow definition redirect %q names no flow", raw)
	}
	input := make(map[string]any)
	if query == "" {
		return flowID, input, nil
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return "", nil, fmt.Errorf("flow definition redirect %q: %w", raw, err)
	}
	for name, vs := range values {
		if len(vs) > 0 {
			input[name] = vs[0]
		}
	}
	return flowID, input, nil
}
