package tools_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/board"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/chat"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/graph"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/tools"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestTools(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Tools Suite")
}

type recordingScheduler struct {
	mu     sync.Mutex
	boards []string
	last   board.SnapshotFunc
}

func (r *recordingScheduler) Schedule(boardID string, source board.SnapshotFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.boards = append(r.boards, boardID)
	r.last = source
}

func (r *recordingScheduler) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.boards)
}

var _ = Describe("Executor", func() {
	var (
		model     *graph.Model
		scheduler *recordingScheduler
		executor  *tools.Executor
		ctx       context.Context
	)

	call := func(name, args string) chat.ToolCall {
		return chat.NewToolCall("call_1", name, args)
	}

	BeforeEach(func() {
		ctx = context.Background()
		model = graph.NewModel([]graph.Node{{ID: "P", Type: graph.NodeTypeEditable}}, nil)
		scheduler = &recordingScheduler{}

		canvas := tools.NewCanvas(model, "board-1", scheduler)
		seq := 0
		canvas.NewID = func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		}

		registry := tools.NewRegistry()
		Expect(tools.RegisterCanvasTools(registry, canvas)).To(Succeed())
		executor = tools.NewExecutor(registry)
	})

	Describe("create_concept_map", func() {
		It("should add one editable node with layout 4 and an edge from its parent", func() {
			status, err := executor.Execute(ctx, call(tools.CreateConceptMap, `{"title":"T","description":"D","parentNodeId":"P"}`))
			Expect(err).ToNot(HaveOccurred())
			Expect(status).To(ContainSubstring("concept map"))

			snap := model.Snapshot()
			Expect(snap.Nodes).To(HaveLen(2))

			node := snap.Nodes[1]
			Expect(node.Type).To(Equal("draggableEditable"))
			Expect(node.Data.Label).To(Equal("T"))
			Expect(node.Data.Description).To(Equal("D"))
			Expect(node.Data.Layout).To(Equal(4))
			Expect(node.Position.X).To(BeNumerically("~", 200, 1e-9))
			Expect(node.Position.Y).To(BeNumerically("~", 0, 1e-9))

			Expect(snap.Edges).To(ConsistOf(graph.Edge{ID: "id-2", Source: "P", Target: node.ID}))
		})

		It("should ignore a layout passed by the model", func() {
			_, err := executor.Execute(ctx, call(tools.CreateConceptMap, `{"title":"T","description":"D","layout":1}`))
			Expect(err).ToNot(HaveOccurred())
			Expect(model.Snapshot().Nodes[1].Data.Layout).To(Equal(tools.LayoutConceptMap))
		})
	})

	Describe("create_flowchart", func() {
		It("should use layout 3 and create a root without an edge", func() {
			_, err := executor.Execute(ctx, call(tools.CreateFlowchart, `{"title":"Deploy","description":"steps"}`))
			Expect(err).ToNot(HaveOccurred())

			snap := model.Snapshot()
			Expect(snap.Nodes[1].Data.Layout).To(Equal(3))
			Expect(snap.Edges).To(BeEmpty())
		})
	})

	Describe("create_knowledge_node", func() {
		It("should default the layout", func() {
			_, err := executor.Execute(ctx, call(tools.CreateKnowledgeNode, `{"title":"K","description":""}`))
			Expect(err).ToNot(HaveOccurred())
			Expect(model.Snapshot().Nodes[1].Data.Layout).To(Equal(0))
		})

		It("should honour caller layout and position", func() {
			_, err := executor.Execute(ctx, call(tools.CreateKnowledgeNode, `{"title":"K","description":"x","layout":2,"position":{"x":-40,"y":75.5}}`))
			Expect(err).ToNot(HaveOccurred())

			node := model.Snapshot().Nodes[1]
			Expect(node.Data.Layout).To(Equal(2))
			Expect(node.Position).To(Equal(graph.Position{X: -40, Y: 75.5}))
		})

		It("should reject a negative layout", func() {
			_, err := executor.Execute(ctx, call(tools.CreateKnowledgeNode, `{"title":"K","description":"x","layout":-1}`))
			Expect(tools.IsArgumentError(err)).To(BeTrue())
		})
	})

	Describe("argument errors", func() {
		DescribeTable("should fail without touching the graph",
			func(args string, field string) {
				_, err := executor.Execute(ctx, call(tools.CreateConceptMap, args))

				var argErr *tools.ToolArgumentError
				Expect(err).To(BeAssignableToTypeOf(argErr))
				Expect(err.(*tools.ToolArgumentError).Field).To(Equal(field))
				Expect(err.Error()).To(ContainSubstring(tools.CreateConceptMap))

				nodes, edges := model.Len()
				Expect(nodes).To(Equal(1))
				Expect(edges).To(Equal(0))
				Expect(scheduler.count()).To(Equal(0))
			},
			Entry("truncated JSON", `{"title":`, ""),
			Entry("empty arguments", ``, ""),
			Entry("wrong type", `{"title":42}`, ""),
			Entry("missing title", `{"description":"D"}`, "title"),
			Entry("blank title", `{"title":"   ","description":"D"}`, "title"),
			Entry("unknown parent", `{"title":"T","description":"D","parentNodeId":"ghost"}`, "parentNodeId"),
		)
	})

	It("should report unknown tools", func() {
		_, err := executor.Execute(ctx, call("delete_everything", `{}`))

		Expect(tools.IsUnknownTool(err)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("delete_everything"))
	})

	It("should discard effects of a cancelled turn with a status, not an error", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		status, err := executor.Execute(cancelled, call(tools.CreateFlowchart, `{"title":"Late","description":""}`))
		Expect(err).ToNot(HaveOccurred())
		Expect(status).To(ContainSubstring("discarded"))

		nodes, _ := model.Len()
		Expect(nodes).To(Equal(1))
	})

	It("should schedule a board write after each insert", func() {
		for i := 0; i < 3; i++ {
			_, err := executor.Execute(ctx, call(tools.CreateKnowledgeNode, fmt.Sprintf(`{"title":"N%d","description":""}`, i)))
			Expect(err).ToNot(HaveOccurred())
		}

		Expect(scheduler.count()).To(Equal(3))
		Expect(scheduler.boards[0]).To(Equal("board-1"))
		Expect(scheduler.last().Nodes).To(HaveLen(4))
	})

	It("should place siblings apart from each other", func() {
		for i := 0; i < 4; i++ {
			_, err := executor.Execute(ctx, call(tools.CreateKnowledgeNode, fmt.Sprintf(`{"title":"N%d","description":"","parentNodeId":"P"}`, i)))
			Expect(err).ToNot(HaveOccurred())
		}

		positions := model.Snapshot().Positions()
		for i := range positions {
			for j := i + 1; j < len(positions); j++ {
				dx, dy := positions[i].X-positions[j].X, positions[i].Y-positions[j].Y
				Expect(dx*dx + dy*dy).To(BeNumerically(">=", 150*150))
			}
		}
	})
})
