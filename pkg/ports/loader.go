package ports

import (
	"github.com/aretw0/webflow/pkg/engine"
)

// DefinitionLoader defines where flow definition documents come from.
// This decouples the definition parser from the storage (directory, memory, embed).
type DefinitionLoader interface {
	// GetFlow retrieves the raw definition document of a flow by ID.
	GetFlow(id string) ([]byte, error)

	// ListFlows returns the IDs of every available definition.
	// This is used by the 'validate' and 'graph' commands.
	ListFlows() ([]string, error)
}

// FlowLocator resolves built flow definitions by id.
type FlowLocator = engine.FlowLocator
