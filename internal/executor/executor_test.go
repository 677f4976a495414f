package executor

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ashutoshrp06/taskmate/internal/conversation"
	"github.com/ashutoshrp06/taskmate/internal/tools"
	"github.com/ashutoshrp06/taskmate/internal/types"
	"go.uber.org/zap"
)

// recordingTool counts invocations and delegates to fn.
type recordingTool struct {
	name   string
	schema tools.Schema
	calls  int
	fn     func(params map[string]any, conv *conversation.Context) types.ToolResult
}

func (r *recordingTool) Name() string         { return r.name }
func (r *recordingTool) Description() string  { return "test tool " + r.name }
func (r *recordingTool) Schema() tools.Schema { return r.schema }
func (r *recordingTool) Execute(_ context.Context, params map[string]any, conv *conversation.Context) types.ToolResult {
	r.calls++
	if r.fn == nil {
		return types.OK(nil)
	}
	return r.fn(params, conv)
}

var titleSchema = tools.Object(map[string]tools.Property{
	"title": {Type: tools.TypeString},
}, "title")

func newConv() *conversation.Context {
	return conversation.New("u1", fixedNow, conversation.DefaultTTL)
}

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestExecute_ValidationFailureSkipsBody(t *testing.T) {
	tool := &recordingTool{name: "create_task", schema: titleSchema}
	ex := NewExecutor(zap.NewNop())

	res := ex.Execute(context.Background(), tool, map[string]any{}, newConv())

	if res.Success {
		t.Fatal("expected failure for missing title")
	}
	if res.Error != "missing required parameter: title" {
		t.Errorf("Error = %q", res.Error)
	}
	if tool.calls != 0 {
		t.Errorf("tool body ran %d times, want 0", tool.calls)
	}
}

func TestExecute_PanicBecomesFailure(t *testing.T) {
	tool := &recordingTool{
		name:   "create_task",
		schema: titleSchema,
		fn: func(map[string]any, *conversation.Context) types.ToolResult {
			panic("database on fire")
		},
	}

	res := NewExecutor(nil).Execute(context.Background(), tool, map[string]any{"title": "x"}, newConv())

	if res.Success {
		t.Fatal("expected failure after panic")
	}
	if !strings.Contains(res.Error, "database on fire") {
		t.Errorf("Error = %q, want panic message", res.Error)
	}
}

func TestExecute_AppliesTrackingAndUndo(t *testing.T) {
	tool := &recordingTool{
		name:   "create_task",
		schema: titleSchema,
		fn: func(params map[string]any, _ *conversation.Context) types.ToolResult {
			title := params["title"].(string)
			return types.OK(map[string]any{"id": "t1", "title": title}).
				WithTrack(types.TrackEntities{
					Tasks:         []types.TaskReference{{ID: "t1", Title: title}},
					LastCreatedID: "t1",
				}).
				WithUndo(types.NewDeleteCreated(types.EntityTask, "t1", "create "+title))
		},
	}
	conv := newConv()

	res := NewExecutor(nil).Execute(context.Background(), tool, map[string]any{"title": "Buy milk"}, conv)

	if !res.Success {
		t.Fatalf("unexpected failure: %s", res.Error)
	}
	if conv.LastCreatedID != "t1" {
		t.Errorf("LastCreatedID = %q, want t1", conv.LastCreatedID)
	}
	if len(conv.LastTasks) != 1 || conv.LastTasks[0].Title != "Buy milk" {
		t.Errorf("LastTasks = %+v", conv.LastTasks)
	}
	if len(conv.UndoStack) != 1 || conv.UndoStack[0].Kind != types.UndoDeleteCreated {
		t.Errorf("UndoStack = %+v", conv.UndoStack)
	}
}

func TestExecute_FailureLeavesContextAlone(t *testing.T) {
	tool := &recordingTool{
		name:   "complete_task",
		schema: titleSchema,
		fn: func(map[string]any, *conversation.Context) types.ToolResult {
			// A failing tool that still reports bookkeeping and data.
			r := types.ToolResult{Success: false, Data: "partial"}
			return r.WithUndo(types.NewUncomplete("t1", "x")).WithTrack(types.TrackEntities{LastCreatedID: "t1"})
		},
	}
	conv := newConv()

	res := NewExecutor(nil).Execute(context.Background(), tool, map[string]any{"title": "x"}, conv)

	if res.Success || res.Data != nil || res.Error == "" {
		t.Errorf("result not normalized: %+v", res)
	}
	if len(conv.UndoStack) != 0 || conv.LastCreatedID != "" {
		t.Error("failed tool must not change the context")
	}
}

func TestExecute_UndoStackStaysBounded(t *testing.T) {
	n := 0
	tool := &recordingTool{
		name:   "create_task",
		schema: titleSchema,
		fn: func(map[string]any, *conversation.Context) types.ToolResult {
			n++
			return types.OK(nil).WithUndo(types.NewDeleteCreated(types.EntityTask, fmt.Sprintf("t%d", n), ""))
		},
	}
	conv := newConv()
	ex := NewExecutor(nil)

	for i := 0; i < 8; i++ {
		ex.Execute(context.Background(), tool, map[string]any{"title": "x"}, conv)
	}

	if len(conv.UndoStack) != conversation.MaxUndo {
		t.Fatalf("undo stack length = %d, want %d", len(conv.UndoStack), conversation.MaxUndo)
	}
	if conv.UndoStack[0].ID != "t8" {
		t.Errorf("top of stack = %s, want t8", conv.UndoStack[0].ID)
	}
}

// ─── RunBatch ─────────────────────────────────────────────────────────────────

func TestRunBatch_SequentialDependentCalls(t *testing.T) {
	created := map[string]bool{}
	create := &recordingTool{
		name:   "create_task",
		schema: titleSchema,
		fn: func(params map[string]any, _ *conversation.Context) types.ToolResult {
			title := params["title"].(string)
			created[title] = true
			return types.OK(map[string]any{"id": "id-" + title, "title": title})
		},
	}
	complete := &recordingTool{
		name: "complete_task",
		schema: tools.Object(map[string]tools.Property{
			"taskId": {Type: tools.TypeString},
		}, "taskId"),
		fn: func(params map[string]any, _ *conversation.Context) types.ToolResult {
			id := params["taskId"].(string)
			if !created[strings.TrimPrefix(id, "id-")] {
				return types.Failf("Task %s not found", id)
			}
			return types.OK(map[string]any{"id": id, "status": "done"})
		},
	}

	calls := []types.ToolCall{
		{Name: "create_task", Parameters: map[string]any{"title": "Buy milk"}},
		{Name: "complete_task", Parameters: map[string]any{"taskId": "${create_task.id}"}},
	}

	records := NewExecutor(nil).RunBatch(context.Background(), calls, ListLookup([]tools.Tool{create, complete}), newConv())

	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	for i, r := range records {
		if !r.Result.Success {
			t.Errorf("record %d failed: %s", i, r.Result.Error)
		}
	}
	if records[1].Params["taskId"] != "id-Buy milk" {
		t.Errorf("recorded params = %v, want resolved id", records[1].Params)
	}
}

func TestRunBatch_UnknownToolIsNotFatal(t *testing.T) {
	known := &recordingTool{name: "list_tasks"}
	calls := []types.ToolCall{
		{Name: "fly_to_moon", Parameters: map[string]any{}},
		{Name: "list_tasks", Parameters: map[string]any{}},
	}

	records := NewExecutor(nil).RunBatch(context.Background(), calls, ListLookup([]tools.Tool{known}), newConv())

	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Result.Success || records[0].Result.Error != "Unknown tool: fly_to_moon" {
		t.Errorf("unknown tool record = %+v", records[0].Result)
	}
	if !records[1].Result.Success || known.calls != 1 {
		t.Error("batch should continue after an unknown tool")
	}
}

func TestRunBatch_UnresolvedReference(t *testing.T) {
	tool := &recordingTool{name: "complete_task"}
	calls := []types.ToolCall{
		{Name: "complete_task", Parameters: map[string]any{"taskId": "${create_task.id}"}},
	}

	records := NewExecutor(nil).RunBatch(context.Background(), calls, ListLookup([]tools.Tool{tool}), newConv())

	if records[0].Result.Success {
		t.Fatal("expected failure for unresolved reference")
	}
	if !strings.Contains(records[0].Result.Error, "create_task") {
		t.Errorf("error should mention the referenced tool, got %q", records[0].Result.Error)
	}
	if tool.calls != 0 {
		t.Error("tool must not run with unresolved parameters")
	}
}

func TestRunBatch_Cancelled(t *testing.T) {
	tool := &recordingTool{name: "list_tasks"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := []types.ToolCall{{Name: "list_tasks"}, {Name: "list_tasks"}}
	records := NewExecutor(nil).RunBatch(ctx, calls, ListLookup([]tools.Tool{tool}), newConv())

	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	for _, r := range records {
		if r.Result.Success || !strings.HasPrefix(r.Result.Error, "cancelled") {
			t.Errorf("record = %+v, want cancelled failure", r.Result)
		}
	}
	if tool.calls != 0 {
		t.Error("no tool should run after cancellation")
	}
}

func TestRunBatch_Empty(t *testing.T) {
	records := NewExecutor(nil).RunBatch(context.Background(), nil, ListLookup(nil), newConv())
	if len(records) != 0 {
		t.Errorf("expected empty records, got %d", len(records))
	}
}
