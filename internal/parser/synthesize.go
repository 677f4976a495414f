package parser

import (
	"encoding/json"
	"strings"

	"github.com/ashutoshrp06/taskmate/internal/types"
)

// SynthesizeFromResults writes a short reply from the last successful tool
// result of the turn. When every call failed it reports the last error. It
// returns "" when nothing useful can be said.
func SynthesizeFromResults(prior []types.ToolCallRecord) string {
	if len(prior) == 0 {
		return ""
	}
	last, ok := lastSuccess(prior)
	if !ok {
		failed := prior[len(prior)-1]
		if failed.Result.Error == "" {
			return ""
		}
		return "Sorry, that didn't work: " + failed.Result.Error
	}

	data := generic(last.Result.Data)
	obj, _ := data.(map[string]any)

	if tasks, ok := obj["tasks"].([]any); ok {
		return renderList(tasks, "You have no matching tasks.")
	}
	if people, ok := obj["people"].([]any); ok {
		return renderList(people, "No matching people found.")
	}
	if items, ok := data.([]any); ok {
		return renderList(items, "Nothing found.")
	}

	name, hasName := recordName(obj)
	if !hasName {
		if task, ok := obj["task"].(map[string]any); ok {
			name, hasName = recordName(task)
		}
	}
	if msg, ok := obj["message"].(string); ok && msg != "" && !hasName {
		return msg
	}

	verb := verbFor(last.Tool)
	switch {
	case hasName && verb != "":
		return verb + ": " + name
	case hasName:
		return DoneMessage + " " + name
	default:
		return DoneMessage
	}
}

func lastSuccess(prior []types.ToolCallRecord) (types.ToolCallRecord, bool) {
	for i := len(prior) - 1; i >= 0; i-- {
		if prior[i].Result.Success {
			return prior[i], true
		}
	}
	return types.ToolCallRecord{}, false
}

func verbFor(tool string) string {
	switch {
	case strings.HasPrefix(tool, "create_"), strings.HasPrefix(tool, "add_"):
		return "Added"
	case strings.HasPrefix(tool, "complete_"):
		return "Completed"
	case strings.HasPrefix(tool, "delete_"), strings.HasPrefix(tool, "remove_"):
		return "Removed"
	case strings.HasPrefix(tool, "update_"):
		return "Updated"
	case tool == "undo":
		return "Undid"
	}
	return ""
}

// generic converts typed tool data into decoded-JSON form.
func generic(v any) any {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	return out
}
