package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/board"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/chat"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/graph"
	"github.com/google/uuid"
)

// NodeCreationRequest is the decoded argument object of every canvas tool.
type NodeCreationRequest struct {
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Layout       *int            `json:"layout,omitempty"`
	Position     *graph.Position `json:"position,omitempty"`
	ParentNodeID string          `json:"parentNodeId,omitempty"`
}

// Scheduler receives a board write request after each successful insert.
type Scheduler interface {
	Schedule(boardID string, source board.SnapshotFunc)
}

// Canvas applies node creation requests to a live graph.
type Canvas struct {
	Model         *graph.Model
	Positioner    *graph.Positioner
	Persister     Scheduler
	BoardID       string
	DefaultLayout int
	NewID         func() string
}

// NewCanvas creates a canvas over model with default placement and uuid ids
func NewCanvas(model *graph.Model, boardID string, persister Scheduler) *Canvas {
	return &Canvas{
		Model:      model,
		Positioner: graph.NewPositioner(),
		Persister:  persister,
		BoardID:    boardID,
		NewID:      uuid.NewString,
	}
}

// CreateNode inserts one node, and an edge from its parent when one is named.
// The parent must already be in the graph when the insert runs.
func (c *Canvas) CreateNode(ctx context.Context, tool string, req NodeCreationRequest) (graph.Node, error) {
	layout := c.DefaultLayout
	if req.Layout != nil {
		layout = *req.Layout
	}

	node, err := c.Model.Insert(ctx, func(cur graph.Snapshot) (graph.Node, *graph.Edge, error) {
		origin := graph.Position{}
		if req.ParentNodeID != "" {
			parent, ok := cur.Node(req.ParentNodeID)
			if !ok {
				return graph.Node{}, nil, &ToolArgumentError{
					Tool:    tool,
					Field:   "parentNodeId",
					Message: fmt.Sprintf("no node with id %q", req.ParentNodeID),
				}
			}
			origin = parent.Position
		}

		pos := c.Positioner.Place(origin, cur.Positions())
		if req.Position != nil {
			pos = *req.Position
		}

		node := graph.Node{
			ID:       c.NewID(),
			Type:     graph.NodeTypeEditable,
			Position: pos,
			Data: graph.NodeData{
				Label:       req.Title,
				Description: req.Description,
				Layout:      layout,
				ParentID:    req.ParentNodeID,
			},
		}

		var edge *graph.Edge
		if req.ParentNodeID != "" {
			edge = &graph.Edge{ID: c.NewID(), Source: req.ParentNodeID, Target: node.ID}
		}
		return node, edge, nil
	})
	if err != nil {
		var argErr *ToolArgumentError
		if errors.As(err, &argErr) {
			return graph.Node{}, err
		}
		return graph.Node{}, &ExecutionError{Tool: tool, Operation: "insert node", Cause: err}
	}

	if c.Persister != nil {
		c.Persister.Schedule(c.BoardID, c.Model.Snapshot)
	}
	return node, nil
}

// NodeTool is a Handler that creates one canvas node per call.
type NodeTool struct {
	spec   chat.ToolSpec
	layout *int // fixed layout; nil lets the caller choose
	canvas *Canvas
}

func (t *NodeTool) Name() string        { return t.spec.Function.Name }
func (t *NodeTool) Spec() chat.ToolSpec { return t.spec }

// Handle decodes the arguments and creates the node.
func (t *NodeTool) Handle(ctx context.Context, arguments string) (string, error) {
	req, err := t.parse(arguments)
	if err != nil {
		return "", err
	}

	node, err := t.canvas.CreateNode(ctx, t.Name(), req)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Created %s node %q (%s)", layoutName(node.Data.Layout), node.Data.Label, node.ID), nil
}

func (t *NodeTool) parse(arguments string) (NodeCreationRequest, error) {
	var req NodeCreationRequest
	if strings.TrimSpace(arguments) == "" {
		return req, &ToolArgumentError{Tool: t.Name(), Message: "arguments are empty"}
	}
	if err := json.Unmarshal([]byte(arguments), &req); err != nil {
		return req, &ToolArgumentError{Tool: t.Name(), Message: "arguments are not valid JSON", Cause: err}
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return req, &ToolArgumentError{Tool: t.Name(), Field: "title", Message: "is required"}
	}

	if t.layout != nil {
		req.Layout = t.layout
	} else if req.Layout != nil && *req.Layout < 0 {
		return req, &ToolArgumentError{Tool: t.Name(), Field: "layout", Message: "must not be negative"}
	}
	return req, nil
}

func layoutName(layout int) string {
	switch layout {
	case LayoutConceptMap:
		return "concept map"
	case LayoutFlowchart:
		return "flowchart"
	default:
		return "knowledge"
	}
}

// RegisterCanvasTools registers the three node creation tools against canvas.
func RegisterCanvasTools(r *Registry, canvas *Canvas) error {
	conceptMap, flowchart := LayoutConceptMap, LayoutFlowchart
	handlers := []Handler{
		&NodeTool{spec: knowledgeNodeSpec(), canvas: canvas},
		&NodeTool{spec: conceptMapSpec(), layout: &conceptMap, canvas: canvas},
		&NodeTool{spec: flowchartSpec(), layout: &flowchart, canvas: canvas},
	}
	for _, h := range handlers {
		if err := r.Register(h); err != nil {
			return err
		}
	}
	return nil
}
