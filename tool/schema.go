package tool

import (
	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Property is one field of an object schema built with Object.
type Property struct {
	Name     string
	Schema   *jsonschema.Schema
	Required bool
}

// Object builds an object schema whose properties keep the given order.
func Object(props ...Property) *jsonschema.Schema {
	schema := &jsonschema.Schema{Type: "object"}
	if len(props) == 0 {
		return schema
	}
	schema.Properties = orderedmap.New[string, *jsonschema.Schema](len(props))
	for _, p := range props {
		schema.Properties.Set(p.Name, p.Schema)
		if p.Required {
			schema.Required = append(schema.Required, p.Name)
		}
	}
	return schema
}

// String, Integer, Number and Boolean describe scalar properties.
func String(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

func Integer(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Description: description}
}

func Number(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "number", Description: description}
}

func Boolean(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "boolean", Description: description}
}

// Enum is a string schema restricted to values.
func Enum(description string, values ...string) *jsonschema.Schema {
	schema := String(description)
	for _, v := range values {
		schema.Enum = append(schema.Enum, v)
	}
	return schema
}

// Required marks a property the model must always supply.
func Required(name string, schema *jsonschema.Schema) Property {
	return Property{Name: name, Schema: schema, Required: true}
}

// Optional marks a property the model may omit.
func Optional(name string, schema *jsonschema.Schema) Property {
	return Property{Name: name, Schema: schema}
}
