// Package definition reads flow definitions from YAML documents and builds them into
// engine flows.
package definition

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/webflow/pkg/engine"
	"github.com/aretw0/webflow/pkg/ports"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Parse decodes and validates one YAML flow document. Unknown keys are errors.
func Parse(data []byte) (*FlowModel, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse flow definition: %w", err)
	}
	if raw == nil {
		return nil, errors.New("parse flow definition: empty document")
	}

	var model FlowModel
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "mapstructure",
		ErrorUnused: true,
		Result:      &model,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode flow definition: %w", err)
	}
	if err := Validate(&model); err != nil {
		return nil, err
	}
	return &model, nil
}

// Validate checks the model's structural rules.
func Validate(m *FlowModel) error {
	if err := validate.Struct(m); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid flow definition %q: %s", m.ID, strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// ParseFile parses the flow definition at path.
func ParseFile(path string) (*FlowModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// LoadDir parses every .yaml and .yml file of dir, in name order, and builds the flows.
func LoadDir(dir string, b *Builder) ([]*engine.Flow, error) {
	return Load(NewDirLoader(dir), b)
}

// Load parses and builds every definition the loader lists, in list order.
func Load(loader ports.DefinitionLoader, b *Builder) ([]*engine.Flow, error) {
	ids, err := loader.ListFlows()
	if err != nil {
		return nil, err
	}
	flows := make([]*engine.Flow, 0, len(ids))
	for _, id := range ids {
		data, err := loader.GetFlow(id)
		if err != nil {
			return nil, err
		}
		m, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", id, err)
		}
		f, err := b.Build(m)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", id, err)
		}
		flows = append(flows, f)
	}
	return flows, nil
}
