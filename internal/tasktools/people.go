package tasktools

import (
	"context"

	"github.com/ashutoshrp06/taskmate/internal/conversation"
	"github.com/ashutoshrp06/taskmate/internal/taskstore"
	"github.com/ashutoshrp06/taskmate/internal/tools"
	"github.com/ashutoshrp06/taskmate/internal/types"
)

func (ts *Toolset) addPerson() tools.Tool {
	return &tools.Definition{
		ToolName:        "add_person",
		ToolDescription: "Remember a person the user works with.",
		Parameters: tools.Object(map[string]tools.Property{
			"name":  {Type: tools.TypeString},
			"notes": {Type: tools.TypeString, Description: "Anything worth remembering about them"},
		}, "name"),
		Run: func(ctx context.Context, params map[string]any, _ *conversation.Context) types.ToolResult {
			p, err := ts.store.AddPerson(ctx, stringParam(params, "name"), stringParam(params, "notes"))
			if err != nil {
				return failure(err)
			}
			return types.OK(p).
				WithTrack(types.TrackEntities{
					People:        []types.PersonReference{personRef(p)},
					LastCreatedID: p.ID,
				}).
				WithUndo(types.NewDeleteCreated(types.EntityPerson, p.ID, "add "+p.Name))
		},
	}
}

func (ts *Toolset) findPerson() tools.Tool {
	return &tools.Definition{
		ToolName:        "find_person",
		ToolDescription: "Look up people by name.",
		Parameters: tools.Object(map[string]tools.Property{
			"name": {Type: tools.TypeString, Description: "Full or partial name"},
		}, "name"),
		Run: func(ctx context.Context, params map[string]any, _ *conversation.Context) types.ToolResult {
			people, err := ts.store.FindPerson(ctx, stringParam(params, "name"))
			if err != nil {
				return failure(err)
			}
			refs := make([]types.PersonReference, len(people))
			for i := range people {
				refs[i] = personRef(&people[i])
			}
			if people == nil {
				people = []taskstore.Person{}
			}
			return types.OK(map[string]any{"people": people, "count": len(people)}).
				WithTrack(types.TrackEntities{People: refs})
		},
	}
}

func (ts *Toolset) removePerson() tools.Tool {
	return &tools.Definition{
		ToolName:        "remove_person",
		ToolDescription: "Forget a person. Their tasks are kept.",
		Parameters: tools.Object(map[string]tools.Property{
			"personId": {Type: tools.TypeString, Description: "Person id, or their exact name"},
		}, "personId"),
		Run: func(ctx context.Context, params map[string]any, _ *conversation.Context) types.ToolResult {
			raw := stringParam(params, "personId")
			id := raw
			if _, err := ts.store.GetPerson(ctx, raw); err != nil {
				p, findErr := ts.resolvePerson(ctx, raw)
				if findErr != nil {
					return failure(findErr)
				}
				if p == nil {
					return types.Failf("Person not found: %s", raw)
				}
				id = p.ID
			}

			removed, err := ts.store.RemovePerson(ctx, id)
			if err != nil {
				return failure(err)
			}
			return types.OK(removed).
				WithUndo(types.NewRestoreRemoved(types.EntityPerson, removed.ID, removed.Snapshot(), "remove "+removed.Name))
		},
	}
}
