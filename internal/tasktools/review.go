package tasktools

import (
	"context"

	"github.com/ashutoshrp06/taskmate/internal/conversation"
	"github.com/ashutoshrp06/taskmate/internal/taskstore"
	"github.com/ashutoshrp06/taskmate/internal/tools"
	"github.com/ashutoshrp06/taskmate/internal/types"
)

// startReview opens the weekly review: every open task, oldest due first,
// walked through one at a time by the model.
func (ts *Toolset) startReview() tools.Tool {
	return &tools.Definition{
		ToolName:        "start_review",
		ToolDescription: "Begin a weekly review of all open tasks.",
		Parameters:      tools.Object(nil),
		Run: func(ctx context.Context, _ map[string]any, conv *conversation.Context) types.ToolResult {
			tasks, err := ts.store.ListTasks(ctx, taskstore.Filter{Status: taskstore.StatusOpen})
			if err != nil {
				return failure(err)
			}

			ids := make([]any, len(tasks))
			for i := range tasks {
				ids[i] = tasks[i].ID
			}
			if conv != nil {
				conv.StartFlow(conversation.FlowReview, map[string]any{"taskIds": ids, "index": 0})
			}

			return types.OK(map[string]any{"tasks": nonNil(tasks), "count": len(tasks)}).
				WithTrack(types.TrackEntities{Tasks: taskRefs(tasks)})
		},
	}
}

func (ts *Toolset) endReview() tools.Tool {
	return &tools.Definition{
		ToolName:        "end_review",
		ToolDescription: "Finish the weekly review.",
		Parameters:      tools.Object(nil),
		Run: func(ctx context.Context, _ map[string]any, conv *conversation.Context) types.ToolResult {
			if conv == nil || conv.ActiveFlow != conversation.FlowReview {
				return types.Fail("no review in progress")
			}
			conv.EndFlow()

			open, err := ts.store.ListTasks(ctx, taskstore.Filter{Status: taskstore.StatusOpen})
			if err != nil {
				return failure(err)
			}
			return types.OK(map[string]any{"message": "Review finished.", "open": len(open)})
		},
	}
}
