package tasktools

import (
	"context"
	"errors"

	"github.com/ashutoshrp06/taskmate/internal/conversation"
	"github.com/ashutoshrp06/taskmate/internal/taskstore"
	"github.com/ashutoshrp06/taskmate/internal/tools"
	"github.com/ashutoshrp06/taskmate/internal/types"
	"go.uber.org/zap"
)

var taskTypeProperty = tools.Property{
	Type:        tools.TypeString,
	Description: "GTD list: action (default), project, waiting (on someone), someday",
	Enum:        taskstore.TaskTypes,
}

func (ts *Toolset) createTask() tools.Tool {
	return &tools.Definition{
		ToolName:        "create_task",
		ToolDescription: "Create a new task.",
		Parameters: tools.Object(map[string]tools.Property{
			"title":      {Type: tools.TypeString, Description: "What needs doing"},
			"type":       taskTypeProperty,
			"context":    {Type: tools.TypeString, Description: "Where or how it gets done, e.g. errands, work, phone"},
			"dueDate":    {Type: tools.TypeString, Description: "Due date, YYYY-MM-DD"},
			"personName": {Type: tools.TypeString, Description: "Person the task involves; added if unknown"},
		}, "title"),
		Run: func(ctx context.Context, params map[string]any, _ *conversation.Context) types.ToolResult {
			in := taskstore.NewTask{
				Title:   stringParam(params, "title"),
				Type:    taskstore.TaskType(stringParam(params, "type")),
				Context: stringParam(params, "context"),
				DueDate: stringParam(params, "dueDate"),
			}

			track := types.TrackEntities{}
			if name := stringParam(params, "personName"); name != "" {
				person, err := ts.resolvePerson(ctx, name)
				if err != nil {
					return failure(err)
				}
				if person == nil {
					if person, err = ts.store.AddPerson(ctx, name, ""); err != nil {
						return failure(err)
					}
				}
				in.PersonID = person.ID
				track.People = []types.PersonReference{personRef(person)}
			}

			task, err := ts.store.CreateTask(ctx, in)
			if err != nil {
				return failure(err)
			}
			ts.indexTask(ctx, task)

			track.Tasks = []types.TaskReference{taskRef(task)}
			track.LastCreatedID = task.ID
			return types.OK(task).
				WithTrack(track).
				WithUndo(types.NewDeleteCreated(types.EntityTask, task.ID, "create "+task.Title))
		},
	}
}

func (ts *Toolset) listTasks() tools.Tool {
	return &tools.Definition{
		ToolName:        "list_tasks",
		ToolDescription: "List tasks, open ones by default.",
		Parameters: tools.Object(map[string]tools.Property{
			"status":     {Type: tools.TypeString, Enum: []string{"open", "done", "all"}, Description: "Defaults to open"},
			"type":       taskTypeProperty,
			"context":    {Type: tools.TypeString, Description: "Only tasks with this context"},
			"personName": {Type: tools.TypeString, Description: "Only tasks involving this person"},
			"dueBefore":  {Type: tools.TypeString, Description: "Only tasks due on or before this date (YYYY-MM-DD or today)"},
			"limit":      {Type: tools.TypeInteger, Description: "Maximum number of tasks"},
		}),
		Run: func(ctx context.Context, params map[string]any, _ *conversation.Context) types.ToolResult {
			f := taskstore.Filter{
				Status:    taskstore.StatusOpen,
				Type:      taskstore.TaskType(stringParam(params, "type")),
				Context:   stringParam(params, "context"),
				DueBefore: stringParam(params, "dueBefore"),
				Limit:     intParam(params, "limit", defaultListLimit),
			}
			switch stringParam(params, "status") {
			case "done":
				f.Status = taskstore.StatusDone
			case "all":
				f.Status = ""
			}
			if f.DueBefore == "today" {
				f.DueBefore = ts.now().Format(taskstore.DateLayout)
			}

			if name := stringParam(params, "personName"); name != "" {
				person, err := ts.resolvePerson(ctx, name)
				if err != nil {
					return failure(err)
				}
				if person == nil {
					return types.Failf("Person not found: %s", name)
				}
				f.PersonID = person.ID
			}

			tasks, err := ts.store.ListTasks(ctx, f)
			if err != nil {
				return failure(err)
			}
			return types.OK(map[string]any{"tasks": nonNil(tasks), "count": len(tasks)}).
				WithTrack(types.TrackEntities{Tasks: taskRefs(tasks)})
		},
	}
}

func (ts *Toolset) findTasks() tools.Tool {
	return &tools.Definition{
		ToolName:        "find_tasks",
		ToolDescription: "Find tasks by words in their title, context or linked person.",
		Parameters: tools.Object(map[string]tools.Property{
			"query": {Type: tools.TypeString, Description: "What to look for"},
			"limit": {Type: tools.TypeInteger, Description: "Maximum number of tasks"},
		}, "query"),
		Run: func(ctx context.Context, params map[string]any, _ *conversation.Context) types.ToolResult {
			query := stringParam(params, "query")
			limit := intParam(params, "limit", defaultFindLimit)

			tasks, err := ts.semanticFind(ctx, query, limit)
			if err != nil || len(tasks) == 0 {
				if err != nil {
					ts.logger.Warn("Semantic search failed, using text search", zap.Error(err))
				}
				if tasks, err = ts.store.SearchTasks(ctx, query, limit); err != nil {
					return failure(err)
				}
			}

			return types.OK(map[string]any{"tasks": nonNil(tasks), "count": len(tasks)}).
				WithTrack(types.TrackEntities{Tasks: taskRefs(tasks)})
		},
	}
}

// semanticFind returns nothing when no index is configured.
func (ts *Toolset) semanticFind(ctx context.Context, query string, limit int) ([]taskstore.Task, error) {
	if ts.index == nil || query == "" {
		return nil, nil
	}
	hits, err := ts.index.Search(ctx, query, limit, minSearchScore)
	if err != nil {
		return nil, err
	}

	tasks := make([]taskstore.Task, 0, len(hits))
	for _, h := range hits {
		t, err := ts.store.GetTask(ctx, h.ID)
		if errors.Is(err, taskstore.ErrNotFound) {
			// Deleted while the index was unreachable.
			continue
		}
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, nil
}

func (ts *Toolset) updateTask() tools.Tool {
	return &tools.Definition{
		ToolName:        "update_task",
		ToolDescription: "Change a task's title, type, context or due date.",
		Parameters: tools.Object(map[string]tools.Property{
			"taskId":  {Type: tools.TypeString, Description: "Task id, or its number in the list just shown"},
			"title":   {Type: tools.TypeString},
			"type":    taskTypeProperty,
			"context": {Type: tools.TypeString},
			"dueDate": {Type: tools.TypeString, Description: "YYYY-MM-DD, or empty to clear"},
		}, "taskId"),
		Run: func(ctx context.Context, params map[string]any, conv *conversation.Context) types.ToolResult {
			task, err := ts.resolveTaskID(ctx, stringParam(params, "taskId"), conv)
			if err != nil {
				return failure(err)
			}

			fields := make(map[string]any)
			for _, name := range taskstore.UpdatableFields() {
				if v, ok := params[name]; ok && name != "personId" {
					fields[name] = v
				}
			}
			if len(fields) == 0 {
				return types.Fail("nothing to update: give a title, type, context or dueDate")
			}

			previous, err := ts.store.UpdateTask(ctx, task.ID, fields)
			if err != nil {
				return failure(err)
			}
			updated, err := ts.store.GetTask(ctx, task.ID)
			if err != nil {
				return failure(err)
			}
			ts.indexTask(ctx, updated)

			return types.OK(updated).
				WithTrack(types.TrackEntities{Tasks: []types.TaskReference{taskRef(updated)}}).
				WithUndo(types.NewRevertUpdate(types.EntityTask, updated.ID, previous, "update "+updated.Title))
		},
	}
}

func (ts *Toolset) completeTask() tools.Tool {
	return &tools.Definition{
		ToolName:        "complete_task",
		ToolDescription: "Mark a task as done.",
		Parameters: tools.Object(map[string]tools.Property{
			"taskId": {Type: tools.TypeString, Description: "Task id, or its number in the list just shown"},
		}, "taskId"),
		Run: func(ctx context.Context, params map[string]any, conv *conversation.Context) types.ToolResult {
			task, err := ts.resolveTaskID(ctx, stringParam(params, "taskId"), conv)
			if err != nil {
				return failure(err)
			}

			done, changed, err := ts.store.CompleteTask(ctx, task.ID)
			if err != nil {
				return failure(err)
			}
			ts.indexTask(ctx, done)

			res := types.OK(done).
				WithTrack(types.TrackEntities{Tasks: []types.TaskReference{taskRef(done)}})
			if !changed {
				return res
			}
			return res.WithUndo(types.NewUncomplete(done.ID, "complete "+done.Title))
		},
	}
}

func (ts *Toolset) deleteTask() tools.Tool {
	return &tools.Definition{
		ToolName:        "delete_task",
		ToolDescription: "Delete a task permanently (undo can bring it back).",
		Parameters: tools.Object(map[string]tools.Property{
			"taskId": {Type: tools.TypeString, Description: "Task id, or its number in the list just shown"},
		}, "taskId"),
		Run: func(ctx context.Context, params map[string]any, conv *conversation.Context) types.ToolResult {
			task, err := ts.resolveTaskID(ctx, stringParam(params, "taskId"), conv)
			if err != nil {
				return failure(err)
			}

			deleted, err := ts.store.DeleteTask(ctx, task.ID)
			if err != nil {
				return failure(err)
			}
			ts.unindexTask(ctx, deleted.ID)

			return types.OK(deleted).
				WithUndo(types.NewRestoreDeleted(types.EntityTask, deleted.ID, deleted.Snapshot(), "delete "+deleted.Title))
		},
	}
}

// nonNil keeps empty results serialising as [] rather than null.
func nonNil(tasks []taskstore.Task) []taskstore.Task {
	if tasks == nil {
		return []taskstore.Task{}
	}
	return tasks
}
