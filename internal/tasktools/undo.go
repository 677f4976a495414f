package tasktools

import (
	"context"
	"fmt"

	"github.com/ashutoshrp06/taskmate/internal/conversation"
	"github.com/ashutoshrp06/taskmate/internal/taskstore"
	"github.com/ashutoshrp06/taskmate/internal/tools"
	"github.com/ashutoshrp06/taskmate/internal/types"
	"go.uber.org/zap"
)

// undo reverses the most recent side effect. It pushes nothing itself, so
// repeated undos walk back through the stack.
func (ts *Toolset) undo() tools.Tool {
	return &tools.Definition{
		ToolName:        "undo",
		ToolDescription: "Undo the last change the assistant made.",
		Parameters:      tools.Object(nil),
		Run: func(ctx context.Context, _ map[string]any, conv *conversation.Context) types.ToolResult {
			if conv == nil {
				return types.Fail(conversation.ErrNoUndo.Error())
			}
			action, ok := conv.PopUndo()
			if !ok {
				return types.Fail(conversation.ErrNoUndo.Error())
			}

			if err := ts.reverse(ctx, action); err != nil {
				ts.logger.Warn("Undo failed",
					zap.String("kind", string(action.Kind)),
					zap.String("id", action.ID),
					zap.Error(err))
				return types.Failf("could not undo %s: %v", action.Label, err)
			}
			return types.OK(map[string]any{"message": "Undid " + action.Label})
		},
	}
}

func (ts *Toolset) reverse(ctx context.Context, a types.UndoAction) error {
	switch a.Kind {
	case types.UndoDeleteCreated:
		switch a.Entity {
		case types.EntityTask:
			if _, err := ts.store.DeleteTask(ctx, a.ID); err != nil {
				return err
			}
			ts.unindexTask(ctx, a.ID)
			return nil
		case types.EntityPerson:
			_, err := ts.store.RemovePerson(ctx, a.ID)
			return err
		}

	case types.UndoRestoreDeleted:
		if a.Entity != types.EntityTask {
			break
		}
		task, err := taskstore.TaskFromSnapshot(a.Snapshot)
		if err != nil {
			return err
		}
		if err := ts.store.RestoreTask(ctx, task); err != nil {
			return err
		}
		ts.indexTask(ctx, task)
		return nil

	case types.UndoRevertUpdate:
		switch a.Entity {
		case types.EntityTask:
			if _, err := ts.store.UpdateTask(ctx, a.ID, a.Previous); err != nil {
				return err
			}
			return ts.reindexOne(ctx, a.ID)
		case types.EntitySetting:
			if v, ok := a.Previous["value"].(string); ok {
				_, _, err := ts.store.SetSetting(ctx, a.ID, v)
				return err
			}
			return ts.store.DeleteSetting(ctx, a.ID)
		}

	case types.UndoUncomplete:
		task, err := ts.store.UncompleteTask(ctx, a.ID)
		if err != nil {
			return err
		}
		ts.indexTask(ctx, task)
		return nil

	case types.UndoRestoreRemoved:
		if a.Entity != types.EntityPerson {
			break
		}
		p, err := taskstore.PersonFromSnapshot(a.Snapshot)
		if err != nil {
			return err
		}
		return ts.store.RestorePerson(ctx, p)
	}
	return fmt.Errorf("unsupported undo %s for %s", a.Kind, a.Entity)
}

func (ts *Toolset) reindexOne(ctx context.Context, id string) error {
	task, err := ts.store.GetTask(ctx, id)
	if err != nil {
		return err
	}
	ts.indexTask(ctx, task)
	return nil
}
