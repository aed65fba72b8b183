package models

// ToolParam describes one argument of a tool
type ToolParam struct {
	Type        string `json:"type"` // JSON schema type: string, integer, number, boolean
	Description string `json:"description,omitempty"`
}

// ToolInfo describes a tool to a model
type ToolInfo struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Parameters  map[string]ToolParam `json:"parameters,omitempty"`
	Required    []string             `json:"required,omitempty"`
}

// Schema returns the JSON schema properties of the tool's parameters.
func (t ToolInfo) Schema() map[string]interface{} {
	props := make(map[string]interface{}, len(t.Parameters))
	for name, p := range t.Parameters {
		prop := map[string]interface{}{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		props[name] = prop
	}
	return props
}
