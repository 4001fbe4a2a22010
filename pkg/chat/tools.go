package chat

// ToolSpec is the wire description of a callable tool sent with a request.
type ToolSpec struct {
	Type     string           `json:"type"`
	Function ToolSpecFunction `json:"function"`
}

type ToolSpecFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

func NewFunctionSpec(name, description string, parameters map[string]any) ToolSpec {
	return ToolSpec{
		Type: ToolTypeFunction,
		Function: ToolSpecFunction{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}
}
