package tool

import (
	"context"
	"fmt"
	"reflect"

	"github.com/casualjim/omnichat/messages"
	"github.com/casualjim/omnichat/pkg/reflectx"
	"github.com/casualjim/omnichat/pkg/stdx"
	"github.com/fogfish/opts"
	"github.com/goccy/go-json"
	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Definition represents a Go function the model may call.
// It includes the function's name, description, parameter names and the function itself.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]string
	Function    any

	// Schema overrides the reflected arguments schema.
	Schema *jsonschema.Schema
}

// Handler receives the raw arguments object the model produced.
type Handler func(ctx context.Context, arguments json.RawMessage) (string, error)

// Explicit registers handler under name with a caller supplied arguments schema.
// A nil schema declares a function without arguments.
func Explicit(name, description string, schema *jsonschema.Schema, handler Handler) (Definition, error) {
	if handler == nil {
		return Definition{}, fmt.Errorf("tool %s: handler is required", name)
	}
	if !messages.ValidFunctionName(name) {
		return Definition{}, fmt.Errorf("invalid tool name %q", name)
	}
	if schema == nil {
		schema = &jsonschema.Schema{Type: "object"}
	}
	return Definition{Name: name, Description: description, Function: handler, Schema: schema}, nil
}

// MustExplicit wraps Explicit and panics when it returns an error.
func MustExplicit(name, description string, schema *jsonschema.Schema, handler Handler) Definition {
	return stdx.Must1(Explicit(name, description, schema, handler))
}

var (
	contextType = reflect.TypeFor[context.Context]()

	functionReflector = jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
		Anonymous:                 true,
	}
)

// ToNameAndSchema returns the tool name and the JSON schema of its arguments.
func (td Definition) ToNameAndSchema() (string, *jsonschema.Schema) {
	if td.Schema != nil {
		return td.Name, td.Schema
	}
	return td.Name, functionSchema(&functionReflector, td)
}

// Declare returns the function declaration sent to the model.
func (td Definition) Declare() messages.Function {
	name, schema := td.ToNameAndSchema()
	return messages.Function{Name: name, Description: td.Description, Parameters: schema}
}

// structArgs reports whether the arguments object decodes straight into the
// function's single struct parameter.
func (td Definition) structArgs() (reflect.Type, bool) {
	if len(td.Parameters) > 0 {
		return nil, false
	}
	in := inputs(reflect.TypeOf(td.Function))
	if len(in) != 1 {
		return nil, false
	}
	t := in[0]
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return in[0], t.Kind() == reflect.Struct
}

// inputs lists the parameter types the model supplies, skipping context.Context.
func inputs(typ reflect.Type) []reflect.Type {
	var out []reflect.Type
	for i := range typ.NumIn() {
		if p := typ.In(i); p != contextType {
			out = append(out, p)
		}
	}
	return out
}

func functionSchema(reflector *jsonschema.Reflector, f Definition) *jsonschema.Schema {
	if st, ok := f.structArgs(); ok {
		schema := reflector.ReflectFromType(st)
		schema.Version = ""
		return schema
	}

	params := inputs(reflect.TypeOf(f.Function))
	schema := &jsonschema.Schema{Type: "object"}
	if len(params) == 0 {
		return schema
	}
	schema.Properties = orderedmap.New[string, *jsonschema.Schema]()

	var required []string
	for i, paramType := range params {
		paramName := f.paramName(i)
		propSchema := reflector.ReflectFromType(paramType)
		propSchema.Version = ""
		schema.Properties.Set(paramName, propSchema)
		required = append(required, paramName)
	}
	if len(required) > 0 {
		schema.Required = required
	}
	return schema
}

func (td Definition) paramName(i int) string {
	key := fmt.Sprintf("param%d", i)
	if p, ok := td.Parameters[key]; ok && p != "" {
		return p
	}
	return key
}

// Option is a type alias for a function that modifies
// the configuration options of a tool.
type Option = opts.Option[Definition]

// Must wraps New and panics when it returns an error.
func Must(f any, options ...Option) Definition {
	return stdx.Must1(New(f, options...))
}

// New creates a Definition from the provided function and options.
// When no name is given the function name is used; the name must be
// acceptable to every vendor.
//
// The function may take a context.Context anywhere in its parameter list and
// must return either a single value, or a value and an error.
func New(f any, options ...Option) (Definition, error) {
	if !reflectx.IsFunction(f) {
		return Definition{}, fmt.Errorf("provided value is not a function")
	}

	var def Definition
	if err := opts.Apply(&def, options); err != nil {
		return Definition{}, err
	}
	if def.Name == "" {
		def.Name = reflectx.FunctionName(f)
	}
	if !messages.ValidFunctionName(def.Name) {
		return Definition{}, fmt.Errorf("invalid tool name %q", def.Name)
	}

	typ := reflect.TypeOf(f)
	switch typ.NumOut() {
	case 1:
	case 2:
		if !typ.Out(1).Implements(errorType) {
			return Definition{}, fmt.Errorf("tool %s: second return value must be an error", def.Name)
		}
	default:
		return Definition{}, fmt.Errorf("tool %s: must return a value, optionally followed by an error", def.Name)
	}

	def.Function = f
	return def, nil
}

// Name sets the tool name.
var Name = opts.ForName[Definition, string]("Name")

// Description sets the description the model sees.
var Description = opts.ForName[Definition, string]("Description")

// Parameters names the function parameters in order, context.Context excluded.
// Unnamed parameters are called param0, param1 and so on.
func Parameters(parameters ...string) opts.Option[Definition] {
	return opts.Type[Definition](func(o *Definition) error {
		o.Parameters = make(map[string]string, len(parameters))
		for i, p := range parameters {
			o.Parameters[fmt.Sprintf("param%d", i)] = p
		}
		return nil
	})
}
