package messages

import (
	"fmt"
	"regexp"

	"github.com/casualjim/omnichat/pkg/stdx"
	"github.com/goccy/go-json"
	"github.com/invopop/jsonschema"
)

var functionName = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidFunctionName reports whether name is acceptable to every supported vendor.
func ValidFunctionName(name string) bool {
	return functionName.MatchString(name)
}

// Function describes a callable the model may invoke.
type Function struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
}

// NewFunction builds a Function, rejecting names vendors would refuse.
func NewFunction(name, description string, parameters *jsonschema.Schema) (Function, error) {
	if !ValidFunctionName(name) {
		return Function{}, fmt.Errorf("invalid function name %q: must match %s", name, functionName)
	}
	return Function{Name: name, Description: description, Parameters: parameters}, nil
}

// MustFunction is NewFunction that panics on an invalid name.
func MustFunction(name, description string, parameters *jsonschema.Schema) Function {
	return stdx.Must1(NewFunction(name, description, parameters))
}

// Schema returns the parameters schema, defaulting to an empty object schema.
func (f Function) Schema() *jsonschema.Schema {
	if f.Parameters != nil {
		return f.Parameters
	}
	return &jsonschema.Schema{Type: "object"}
}

// SchemaJSON renders Schema as JSON.
func (f Function) SchemaJSON() (json.RawMessage, error) {
	b, err := json.Marshal(f.Schema())
	if err != nil {
		return nil, fmt.Errorf("marshal parameters of %s: %w", f.Name, err)
	}
	return b, nil
}
