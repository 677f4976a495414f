package executor

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// varPattern matches ${tool_name.field.path} placeholders.
var varPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// VariableResolver lets a later call in a batch refer to the data returned
// by an earlier one, e.g. {"taskId": "${create_task.id}"}.
type VariableResolver struct {
	results map[string]any
}

func NewVariableResolver() *VariableResolver {
	return &VariableResolver{
		results: make(map[string]any),
	}
}

// AddResult records a tool's data under its name. A later result from the
// same tool replaces the earlier one. Strings holding JSON are decoded;
// other strings are reachable as ${tool.value}.
func (vr *VariableResolver) AddResult(toolName string, data any) {
	if data == nil {
		return
	}
	if s, ok := data.(string); ok {
		if s == "" {
			return
		}
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err == nil {
			vr.results[toolName] = decoded
			return
		}
		vr.results[toolName] = map[string]any{"value": s}
		return
	}

	b, err := json.Marshal(data)
	if err != nil {
		return
	}
	var decoded any
	if err := json.Unmarshal(b, &decoded); err != nil {
		return
	}
	vr.results[toolName] = decoded
}

// HasResult reports whether a tool's data has been recorded.
func (vr *VariableResolver) HasResult(toolName string) bool {
	_, ok := vr.results[toolName]
	return ok
}

// Resolve interpolates every placeholder in value.
func (vr *VariableResolver) Resolve(value string) (string, error) {
	var firstErr error
	result := varPattern.ReplaceAllStringFunc(value, func(match string) string {
		if firstErr != nil {
			return match
		}
		resolved, err := vr.lookup(match[2 : len(match)-1])
		if err != nil {
			firstErr = err
			return match
		}
		return formatValue(resolved)
	})
	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// ResolveParams returns a copy of params with placeholders resolved. A
// string that is exactly one placeholder takes the referenced value's type.
func (vr *VariableResolver) ResolveParams(params map[string]any) (map[string]any, error) {
	if params == nil {
		return nil, nil
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		resolved, err := vr.resolveValue(v)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", k, err)
		}
		out[k] = resolved
	}
	return out, nil
}

func (vr *VariableResolver) resolveValue(v any) (any, error) {
	switch x := v.(type) {
	case string:
		if m := varPattern.FindStringSubmatch(x); m != nil && m[0] == x {
			return vr.lookup(m[1])
		}
		return vr.Resolve(x)
	case map[string]any:
		return vr.ResolveParams(x)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			r, err := vr.resolveValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	default:
		return v, nil
	}
}

// lookup walks a "tool.field.0.sub" reference.
func (vr *VariableResolver) lookup(ref string) (any, error) {
	parts := strings.Split(strings.TrimSpace(ref), ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("unresolved reference ${%s}: expected tool.field", ref)
	}

	current, ok := vr.results[parts[0]]
	if !ok {
		return nil, fmt.Errorf("unresolved reference ${%s}: no result from %s", ref, parts[0])
	}

	for _, part := range parts[1:] {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[part]
			if !ok {
				return nil, fmt.Errorf("unresolved reference ${%s}: no field %q", ref, part)
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, fmt.Errorf("unresolved reference ${%s}: index %q out of range", ref, part)
			}
			current = node[idx]
		default:
			return nil, fmt.Errorf("unresolved reference ${%s}: cannot descend into %q", ref, part)
		}
	}
	return current, nil
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case nil:
		return ""
	case map[string]any, []any:
		b, _ := json.Marshal(x)
		return string(b)
	default:
		return fmt.Sprint(x)
	}
}

// ContainsVariables reports whether any string in params holds a placeholder.
func ContainsVariables(params map[string]any) bool {
	for _, v := range params {
		if containsVariable(v) {
			return true
		}
	}
	return false
}

func containsVariable(v any) bool {
	switch x := v.(type) {
	case string:
		return varPattern.MatchString(x)
	case map[string]any:
		return ContainsVariables(x)
	case []any:
		for _, item := range x {
			if containsVariable(item) {
				return true
			}
		}
	}
	return false
}
