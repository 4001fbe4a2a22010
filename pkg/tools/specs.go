package tools

import "github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/chat"

// Canvas tool names.
const (
	CreateKnowledgeNode = "create_knowledge_node"
	CreateConceptMap    = "create_concept_map"
	CreateFlowchart     = "create_flowchart"
)

// Fixed layouts for the structured node kinds.
const (
	LayoutFlowchart  = 3
	LayoutConceptMap = 4
)

func nodeParameters(withLayout bool) map[string]any {
	props := map[string]any{
		"title": map[string]any{
			"type":        "string",
			"description": "Short title shown on the node",
		},
		"description": map[string]any{
			"type":        "string",
			"description": "Body text of the node",
		},
		"parentNodeId": map[string]any{
			"type":        "string",
			"description": "Id of an existing node to attach to; omit for a root node",
		},
	}
	if withLayout {
		props["layout"] = map[string]any{
			"type":        "integer",
			"description": "Layout variant of the node",
			"minimum":     0,
		}
		props["position"] = map[string]any{
			"type":        "object",
			"description": "Explicit canvas position; omit to place automatically",
			"properties": map[string]any{
				"x": map[string]any{"type": "number"},
				"y": map[string]any{"type": "number"},
			},
			"required": []string{"x", "y"},
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   []string{"title", "description"},
	}
}

func knowledgeNodeSpec() chat.ToolSpec {
	return chat.NewFunctionSpec(CreateKnowledgeNode,
		"Create a knowledge node on the canvas, optionally linked to a parent node",
		nodeParameters(true))
}

func conceptMapSpec() chat.ToolSpec {
	return chat.NewFunctionSpec(CreateConceptMap,
		"Create a concept map node that explains how ideas relate",
		nodeParameters(false))
}

func flowchartSpec() chat.ToolSpec {
	return chat.NewFunctionSpec(CreateFlowchart,
		"Create a flowchart node that walks through a process step by step",
		nodeParameters(false))
}
