package parser

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/ashutoshrp06/taskmate/internal/types"
)

// repairableParams are the parameter names recovered from malformed
// tool-call JSON. Other keys are not recovered.
var repairableParams = []string{"title", "personName", "dueDate", "context", "type"}

var (
	toolNameRegexp = regexp.MustCompile(`"tool"\s*:\s*"([^"\\]+)"`)
	nameRegexp     = regexp.MustCompile(`"name"\s*:\s*"([^"\\]+)"`)
	paramRegexps   = compileParamRegexps(repairableParams)
)

// compileParamRegexps builds one matcher per key. The value capture stops at
// the closing quote or at end of input, so a value cut off mid-string is
// still recovered.
func compileParamRegexps(keys []string) map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp, len(keys))
	for _, k := range keys {
		out[k] = regexp.MustCompile(`"` + regexp.QuoteMeta(k) + `"\s*:\s*"((?:[^"\\]|\\.)*)`)
	}
	return out
}

// repairToolCall extracts a single tool call from malformed JSON. It needs
// a tool name and at least one recoverable parameter.
func repairToolCall(text string) (types.ToolCall, bool) {
	name := ""
	if m := toolNameRegexp.FindStringSubmatch(text); m != nil {
		name = m[1]
	} else if m := nameRegexp.FindStringSubmatch(text); m != nil {
		name = m[1]
	}
	if name == "" {
		return types.ToolCall{}, false
	}

	params := make(map[string]any)
	for _, key := range repairableParams {
		m := paramRegexps[key].FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if v := unescape(m[1]); v != "" {
			params[key] = v
		}
	}
	if len(params) == 0 {
		return types.ToolCall{}, false
	}
	return types.ToolCall{Name: name, Parameters: params}, true
}

// unescape decodes JSON string escapes, tolerating a dangling backslash
// left by truncation.
func unescape(s string) string {
	s = strings.TrimSuffix(s, `\`)
	if u, err := strconv.Unquote(`"` + s + `"`); err == nil {
		return u
	}
	return s
}

// embeddedToolCalls scans prose for balanced JSON objects and returns the
// tool calls among them.
func embeddedToolCalls(text string) []types.ToolCall {
	var calls []types.ToolCall

	depth := 0
	start := -1
	inString := false
	escaped := false

	for i, c := range text {
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				calls = append(calls, callsInObject(text[start:i+1])...)
				start = -1
			}
		}
	}
	return calls
}

func callsInObject(s string) []types.ToolCall {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil
	}
	if arr, ok := obj["tool_calls"].([]any); ok {
		if calls, ok := toolCallsFrom(arr); ok {
			return calls
		}
	}
	if call, ok := toolCallFrom(obj); ok {
		return []types.ToolCall{call}
	}
	return nil
}
