package tasktools

import (
	"context"

	"github.com/ashutoshrp06/taskmate/internal/conversation"
	"github.com/ashutoshrp06/taskmate/internal/tools"
	"github.com/ashutoshrp06/taskmate/internal/types"
)

func (ts *Toolset) setSetting() tools.Tool {
	return &tools.Definition{
		ToolName:        "set_setting",
		ToolDescription: "Save a user preference such as timezone or review_day.",
		Parameters: tools.Object(map[string]tools.Property{
			"key":   {Type: tools.TypeString},
			"value": {Type: tools.TypeString},
		}, "key", "value"),
		Run: func(ctx context.Context, params map[string]any, _ *conversation.Context) types.ToolResult {
			key := stringParam(params, "key")
			value := stringParam(params, "value")

			prev, existed, err := ts.store.SetSetting(ctx, key, value)
			if err != nil {
				return failure(err)
			}

			// An empty Previous means the key did not exist before.
			previous := map[string]any{}
			if existed {
				previous["value"] = prev
			}
			return types.OK(map[string]any{"key": key, "value": value, "message": "Saved " + key + "."}).
				WithUndo(types.NewRevertUpdate(types.EntitySetting, key, previous, "set "+key))
		},
	}
}

func (ts *Toolset) getSettings() tools.Tool {
	return &tools.Definition{
		ToolName:        "get_settings",
		ToolDescription: "Show all saved preferences.",
		Parameters:      tools.Object(nil),
		Run: func(ctx context.Context, _ map[string]any, _ *conversation.Context) types.ToolResult {
			settings, err := ts.store.Settings(ctx)
			if err != nil {
				return failure(err)
			}
			return types.OK(map[string]any{"settings": settings})
		},
	}
}
