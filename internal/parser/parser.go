// Package parser turns raw model output into either user-facing prose or a
// batch of tool calls. Whatever the model returns, text handed back to the
// caller never starts with a JSON bracket.
package parser

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/ashutoshrp06/taskmate/internal/types"
	"go.uber.org/zap"
)

// Fixed user-facing messages.
const (
	FallbackMessage       = "I processed your request but had trouble putting the answer into words. Could you ask again?"
	ApologyMessage        = "Sorry, I had trouble understanding that. Could you rephrase?"
	ClarifyIndicesMessage = "I'm not sure which items you mean. Could you describe them by name instead of by number?"
	DoneMessage           = "Done!"
)

// ResponseType classifies a parsed model reply.
type ResponseType int

const (
	TypeText ResponseType = iota
	TypeToolCalls
)

func (t ResponseType) String() string {
	if t == TypeToolCalls {
		return "tool_calls"
	}
	return "text"
}

// Response is the parser's verdict on one model reply.
type Response struct {
	Type    ResponseType
	Content string
	Calls   []types.ToolCall
}

func textResponse(s string) Response {
	return Response{Type: TypeText, Content: s}
}

func callsResponse(calls []types.ToolCall) Response {
	return Response{Type: TypeToolCalls, Calls: calls}
}

var (
	// fencedRegexp matches a reply that is entirely one fenced block.
	fencedRegexp = regexp.MustCompile("(?s)^```[A-Za-z]*[ \t]*\n?(.*?)\\s*```$")
	// openFenceRegexp matches a leading fence whose closing fence was cut off.
	openFenceRegexp = regexp.MustCompile("^```[A-Za-z]*[ \t]*\n?")
)

// Parser classifies and repairs model output. It holds no per-turn state.
type Parser struct {
	logger *zap.Logger
}

// New creates a parser.
func New(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger}
}

// Parse classifies raw model output. hasPriorToolResults and prior describe
// tool calls already executed in this turn; they are used to produce a
// summary when the model's final answer is unusable.
func (p *Parser) Parse(raw string, hasPriorToolResults bool, prior []types.ToolCallRecord) Response {
	text := stripFences(raw)

	var resp Response
	switch {
	case text == "":
		resp = p.fallback(text, hasPriorToolResults, prior)
	case isBracketed(text):
		var v any
		if err := json.Unmarshal([]byte(text), &v); err == nil {
			resp = p.interpret(v, hasPriorToolResults, prior)
		} else {
			resp = p.salvage(text, hasPriorToolResults, prior)
		}
	default:
		resp = p.prose(text)
	}

	return p.safetyNet(resp)
}

// prose handles replies that do not start with JSON. A balanced tool call
// object embedded in the prose still counts as a tool call.
func (p *Parser) prose(text string) Response {
	if calls := embeddedToolCalls(text); len(calls) > 0 {
		p.logger.Debug("Extracted tool calls embedded in prose", zap.Int("calls", len(calls)))
		return callsResponse(calls)
	}
	if hasToolMarkers(text) {
		if call, ok := repairToolCall(text); ok {
			p.logger.Info("Repaired truncated tool call in prose", zap.String("tool", call.Name))
			return callsResponse([]types.ToolCall{call})
		}
	}
	return textResponse(text)
}

// salvage handles bracketed text that failed strict decoding.
func (p *Parser) salvage(text string, hasPrior bool, prior []types.ToolCallRecord) Response {
	if hasToolMarkers(text) {
		if call, ok := repairToolCall(text); ok {
			p.logger.Info("Repaired malformed tool call",
				zap.String("tool", call.Name),
				zap.Int("params", len(call.Parameters)))
			return callsResponse([]types.ToolCall{call})
		}
		p.logger.Warn("Could not repair malformed tool call", zap.String("raw_response", truncate(text, 200)))
	}
	return p.fallback(text, hasPrior, prior)
}

func (p *Parser) fallback(text string, hasPrior bool, prior []types.ToolCallRecord) Response {
	if hasPrior {
		if summary := SynthesizeFromResults(prior); summary != "" {
			p.logger.Debug("Synthesized reply from tool results")
			return textResponse(summary)
		}
	}
	if text != "" {
		p.logger.Warn("Unusable model response", zap.String("raw_response", truncate(text, 200)))
	}
	return textResponse(ApologyMessage)
}

// safetyNet guarantees text responses never expose raw structure.
func (p *Parser) safetyNet(resp Response) Response {
	if resp.Type != TypeText {
		return resp
	}
	content := strings.TrimSpace(resp.Content)
	if content == "" || isBracketed(content) {
		p.logger.Warn("Suppressed structured text response", zap.String("content", truncate(content, 200)))
		return textResponse(FallbackMessage)
	}
	resp.Content = content
	return resp
}

// stripFences removes a surrounding markdown code fence.
func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if m := fencedRegexp.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(openFenceRegexp.ReplaceAllString(text, ""))
}

func isBracketed(s string) bool {
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}

func hasToolMarkers(s string) bool {
	return strings.Contains(s, `"tool"`) ||
		strings.Contains(s, `"tool_calls"`) ||
		strings.Contains(s, `"parameters"`)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
