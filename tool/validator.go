package tool

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

// Validator validates tool inputs against their schemas. Resolved schemas
// are cached per schema pointer.
type Validator struct {
	mu       sync.Mutex
	resolved map[*jsonschema.Schema]*jsonschema.Resolved
}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{
		resolved: make(map[*jsonschema.Schema]*jsonschema.Resolved),
	}
}

// ValidateInput validates input against schema. An empty input is treated
// as the empty object.
func (v *Validator) ValidateInput(schema *jsonschema.Schema, input json.RawMessage) error {
	if schema == nil {
		return fmt.Errorf("%w: no schema", ErrInvalidInput)
	}
	if schema.Type != "object" {
		return fmt.Errorf("%w: schema type must be 'object', got %q", ErrInvalidInput, schema.Type)
	}

	if len(input) == 0 {
		input = json.RawMessage(`{}`)
	}
	var instance map[string]any
	if err := json.Unmarshal(input, &instance); err != nil {
		return fmt.Errorf("%w: input is not a JSON object: %w", ErrInvalidInput, err)
	}
	if instance == nil {
		instance = map[string]any{}
	}

	resolved, err := v.resolve(schema)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err := resolved.Validate(instance); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}

func (v *Validator) resolve(schema *jsonschema.Schema) (*jsonschema.Resolved, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if r, ok := v.resolved[schema]; ok {
		return r, nil
	}
	r, err := schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve schema: %w", err)
	}
	v.resolved[schema] = r
	return r, nil
}
