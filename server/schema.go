package server

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/jrsteele09/go-spotify-mcp/gateway"
	"github.com/jrsteele09/go-spotify-mcp/internal/utils"
)

// inputSchema describes a command's parameters as a JSON object schema.
// Arguments are validated by the gateway, not against this schema.
func inputSchema(params []gateway.Param) *jsonschema.Schema {
	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: make(map[string]*jsonschema.Schema, len(params)),
	}
	for _, p := range params {
		prop := &jsonschema.Schema{
			Type:        string(p.Type),
			Description: p.Description,
		}
		if p.Default != nil {
			if raw, err := json.Marshal(p.Default); err == nil {
				prop.Default = raw
			}
		}
		for _, v := range p.Enum {
			prop.Enum = append(prop.Enum, v)
		}
		if p.Minimum != nil {
			prop.Minimum = utils.Ptr(float64(*p.Minimum))
		}
		if p.Maximum != nil {
			prop.Maximum = utils.Ptr(float64(*p.Maximum))
		}
		schema.Properties[p.Name] = prop
		if p.Required {
			schema.Required = append(schema.Required, p.Name)
		}
	}
	return schema
}
