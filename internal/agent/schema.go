package agent

import (
	"reflect"
	"strings"
)

// Property describes one tool parameter.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Parameters is the JSON schema object for a tool's arguments.
type Parameters struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required"`
}

// Schema tells the model how a tool may be invoked.
type Schema struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  Parameters `json:"parameters"`
}

// field is a parameter derived from an argument struct.
type field struct {
	name       string
	index      int
	kind       reflect.Kind
	schemaType string
	desc       string
	def        string
	hasDefault bool
}

// SchemaFor builds a tool schema from an argument struct. Each exported field
// is a parameter named after its json tag. Fields carrying a `default` tag are
// optional; all others are required. A `desc` tag sets the parameter's
// description.
func SchemaFor(name, description string, args any) Schema {
	if description == "" {
		description = "Tool: " + name
	}
	params := Parameters{
		Type:       "object",
		Properties: make(map[string]Property),
		Required:   []string{},
	}
	for _, f := range fieldsOf(reflect.TypeOf(args)) {
		params.Properties[f.name] = Property{Type: f.schemaType, Description: f.desc}
		if !f.hasDefault {
			params.Required = append(params.Required, f.name)
		}
	}
	return Schema{Name: name, Description: description, Parameters: params}
}

func fieldsOf(t reflect.Type) []field {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}

	fields := make([]field, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := sf.Name
		if tag, ok := sf.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		desc := sf.Tag.Get("desc")
		if desc == "" {
			desc = "Parameter " + name
		}
		def, hasDefault := sf.Tag.Lookup("default")
		fields = append(fields, field{
			name:       name,
			index:      i,
			kind:       sf.Type.Kind(),
			schemaType: schemaType(sf.Type),
			desc:       desc,
			def:        def,
			hasDefault: hasDefault,
		})
	}
	return fields
}

// schemaType maps a Go type onto one of the four schema scalar types.
// Anything unrecognised is presented as a string.
func schemaType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	default:
		return "string"
	}
}
