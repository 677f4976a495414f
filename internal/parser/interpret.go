package parser

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ashutoshrp06/taskmate/internal/types"
	"go.uber.org/zap"
)

// maxListed caps how many entries a rendered list shows.
const maxListed = 10

var (
	// objectTextKeys are checked in order on object replies.
	objectTextKeys = []string{"response", "message", "text", "content", "reply", "answer", "data"}
	// elementTextKeys are checked on the first element of an array reply.
	elementTextKeys = []string{"text", "response", "message", "content", "reply", "answer"}
)

// interpret decides what a strictly decoded JSON reply means.
func (p *Parser) interpret(v any, hasPrior bool, prior []types.ToolCallRecord) Response {
	switch x := v.(type) {
	case []any:
		return p.interpretArray(x, hasPrior, prior)
	case map[string]any:
		return p.interpretObject(x, hasPrior, prior)
	}
	p.logger.Warn("Unrecognized JSON reply", zap.String("kind", fmt.Sprintf("%T", v)))
	return textResponse(FallbackMessage)
}

func (p *Parser) interpretArray(arr []any, hasPrior bool, prior []types.ToolCallRecord) Response {
	if calls, ok := toolCallsFrom(arr); ok {
		return callsResponse(calls)
	}

	if len(arr) > 0 && allNumeric(arr) {
		// The model answered "which ones" with bare positions.
		return textResponse(ClarifyIndicesMessage)
	}

	if strs, ok := allStrings(arr); ok && len(strs) > 0 {
		return textResponse(strings.Join(strs, ", "))
	}

	if len(arr) > 0 {
		if first, ok := arr[0].(map[string]any); ok {
			if s, ok := firstString(first, elementTextKeys); ok {
				return textResponse(s)
			}
		}
	}

	if hasPrior {
		if summary := SynthesizeFromResults(prior); summary != "" {
			return textResponse(summary)
		}
	}
	p.logger.Warn("Unrecognized JSON array reply", zap.Int("length", len(arr)))
	return textResponse(FallbackMessage)
}

func (p *Parser) interpretObject(obj map[string]any, hasPrior bool, prior []types.ToolCallRecord) Response {
	if raw, ok := obj["tool_calls"]; ok {
		if arr, ok := raw.([]any); ok {
			if calls, ok := toolCallsFrom(arr); ok {
				return callsResponse(calls)
			}
		}
	}

	if call, ok := toolCallFrom(obj); ok {
		return callsResponse([]types.ToolCall{call})
	}

	if s, ok := firstString(obj, objectTextKeys); ok {
		return textResponse(s)
	}
	for _, key := range objectTextKeys {
		if nested, ok := obj[key].(map[string]any); ok {
			if s, ok := nested["message"].(string); ok && strings.TrimSpace(s) != "" {
				return textResponse(s)
			}
		}
	}

	if success, ok := obj["success"].(bool); ok {
		if success {
			return textResponse(DoneMessage)
		}
		if msg, ok := obj["error"].(string); ok && msg != "" {
			return textResponse("Sorry, that didn't work: " + msg)
		}
		return textResponse("Sorry, that didn't work.")
	}

	if name, ok := recordName(obj); ok {
		return textResponse("Added: " + name)
	}

	if tasks, ok := obj["tasks"].([]any); ok {
		return textResponse(renderList(tasks, "You have no matching tasks."))
	}

	if hasPrior {
		if summary := SynthesizeFromResults(prior); summary != "" {
			return textResponse(summary)
		}
	}
	p.logger.Warn("Unrecognized JSON object reply", zap.Strings("keys", keysOf(obj)))
	return textResponse(FallbackMessage)
}

// toolCallsFrom converts an array in which every element is a tool call.
func toolCallsFrom(arr []any) ([]types.ToolCall, bool) {
	if len(arr) == 0 {
		return nil, false
	}
	calls := make([]types.ToolCall, 0, len(arr))
	for _, el := range arr {
		obj, ok := el.(map[string]any)
		if !ok {
			return nil, false
		}
		call, ok := toolCallFrom(obj)
		if !ok {
			return nil, false
		}
		calls = append(calls, call)
	}
	return calls, true
}

// toolCallFrom recognises the call shapes models produce:
//
//	{"tool": "x", "parameters": {...}}
//	{"name": "x", "params": {...}}
//	{"function": {"name": "x", "arguments": "{...}"}}
//
// A bare {"name": ...} without parameters is a record, not a call.
func toolCallFrom(obj map[string]any) (types.ToolCall, bool) {
	if fn, ok := obj["function"].(map[string]any); ok {
		name, _ := fn["name"].(string)
		if name == "" {
			return types.ToolCall{}, false
		}
		return types.ToolCall{Name: name, Parameters: paramsFrom(fn, "arguments")}, true
	}

	if name, ok := obj["tool"].(string); ok && name != "" {
		return types.ToolCall{Name: name, Parameters: paramsFrom(obj, "parameters", "params", "arguments")}, true
	}

	if name, ok := obj["name"].(string); ok && name != "" {
		for _, key := range []string{"parameters", "params", "arguments"} {
			if _, present := obj[key]; present {
				return types.ToolCall{Name: name, Parameters: paramsFrom(obj, key)}, true
			}
		}
	}
	return types.ToolCall{}, false
}

// paramsFrom returns the first present parameter field. An absent field
// yields an empty map; a present non-object yields nil so validation
// rejects it. A JSON-encoded string object is decoded.
func paramsFrom(obj map[string]any, keys ...string) map[string]any {
	for _, key := range keys {
		raw, present := obj[key]
		if !present {
			continue
		}
		switch v := raw.(type) {
		case map[string]any:
			return v
		case string:
			var m map[string]any
			if err := json.Unmarshal([]byte(v), &m); err == nil && m != nil {
				return m
			}
			return nil
		default:
			return nil
		}
	}
	return map[string]any{}
}

func allNumeric(arr []any) bool {
	for _, el := range arr {
		switch v := el.(type) {
		case float64:
		case string:
			if _, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err != nil {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func allStrings(arr []any) ([]string, bool) {
	out := make([]string, 0, len(arr))
	for _, el := range arr {
		s, ok := el.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func firstString(obj map[string]any, keys []string) (string, bool) {
	for _, key := range keys {
		if s, ok := obj[key].(string); ok && strings.TrimSpace(s) != "" {
			return s, true
		}
	}
	return "", false
}

// recordName recognises a created-record shape.
func recordName(obj map[string]any) (string, bool) {
	return firstString(obj, []string{"title", "task", "name"})
}

// renderList numbers up to maxListed entries and notes how many were left out.
func renderList(items []any, empty string) string {
	if len(items) == 0 {
		return empty
	}

	var sb strings.Builder
	for i, item := range items {
		if i == maxListed {
			sb.WriteString(fmt.Sprintf("+%d more", len(items)-maxListed))
			break
		}
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, itemLabel(item)))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func itemLabel(item any) string {
	switch v := item.(type) {
	case string:
		return v
	case map[string]any:
		if s, ok := recordName(v); ok {
			if status, _ := v["status"].(string); status == "done" {
				return s + " (done)"
			}
			return s
		}
	}
	return "(untitled)"
}

func keysOf(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	return keys
}
