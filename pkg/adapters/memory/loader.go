package memory

import (
	"fmt"
	"maps"
	"slices"

	"github.com/aretw0/webflow/pkg/domain"
)

// Loader implements ports.DefinitionLoader over definition documents held in memory,
// such as the inline flows of a configuration file.
type Loader struct {
	docs map[string][]byte
}

// NewLoader copies docs, raw YAML definitions keyed by flow id.
func NewLoader(docs map[string]string) *Loader {
	l := &Loader{docs: make(map[string][]byte, len(docs))}
	for id, doc := range docs {
		l.docs[id] = []byte(doc)
	}
	return l
}

// GetFlow returns the document of flow id, or an error wrapping domain.ErrFlowNotFound.
func (l *Loader) GetFlow(id string) ([]byte, error) {
	doc, ok := l.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrFlowNotFound, id)
	}
	return slices.Clone(doc), nil
}

// ListFlows returns the flow ids in name order.
func (l *Loader) ListFlows() ([]string, error) {
	return slices.Sorted(maps.Keys(l.docs)), nil
}
