package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ashutoshrp06/taskmate/internal/conversation"
	"github.com/ashutoshrp06/taskmate/internal/executor"
	"github.com/ashutoshrp06/taskmate/internal/llm"
	"github.com/ashutoshrp06/taskmate/internal/parser"
	"github.com/ashutoshrp06/taskmate/internal/tools"
	"github.com/ashutoshrp06/taskmate/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMaxIterations bounds a turn when the request sets no budget.
const DefaultMaxIterations = 5

// RephraseMessage is returned when the iteration budget runs out.
const RephraseMessage = "I couldn't finish that in a few steps. Could you rephrase or break it into smaller requests?"

// maxResultChars caps one serialized tool result in the transcript.
const maxResultChars = 2000

// Request is one user turn.
type Request struct {
	Message       string
	Tools         []tools.Tool
	Context       *conversation.Context
	MaxIterations int
}

// Result is the outcome of one turn.
type Result struct {
	Success   bool
	Response  string
	ToolCalls []types.ToolCallRecord
	// UpdatedContext holds only the context fields the turn changed.
	UpdatedContext conversation.Patch
	Iterations     int
	Error          string
}

// Loop drives the prompt → model → parse → execute cycle.
type Loop struct {
	llm      llm.Generator
	prompts  *llm.PromptBuilder
	parser   *parser.Parser
	executor *executor.Executor
	logger   *zap.Logger
}

func NewLoop(gen llm.Generator, prompts *llm.PromptBuilder, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prompts == nil {
		prompts = llm.NewPromptBuilder(0)
	}
	return &Loop{
		llm:      gen,
		prompts:  prompts,
		parser:   parser.New(logger),
		executor: executor.NewExecutor(logger),
		logger:   logger,
	}
}

// Run executes one turn. It only gives up when the model call fails or the
// iteration budget is spent; tool failures of any kind are fed back to the
// model as observations.
func (l *Loop) Run(ctx context.Context, req Request) Result {
	log := l.logger.With(zap.String("turn", uuid.NewString()))

	maxIter := req.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}
	conv := req.Context
	if conv == nil {
		conv = conversation.New("", time.Now(), conversation.DefaultTTL)
	}
	before := conv.Clone()

	transcript := []llm.Turn{{Role: llm.RoleUser, Content: req.Message}}
	var records []types.ToolCallRecord
	hasResults := false

	finish := func(res Result) Result {
		res.ToolCalls = records
		res.UpdatedContext = conversation.Diff(before, conv)
		return res
	}

	for iter := 1; iter <= maxIter; iter++ {
		prompt := l.prompts.Build(llm.PromptInput{
			Tools:          req.Tools,
			Transcript:     transcript,
			Context:        conv,
			HasToolResults: hasResults,
		})

		start := time.Now()
		raw, err := l.llm.Generate(ctx, prompt)
		if err != nil {
			log.Error("LLM call failed",
				zap.Int("iteration", iter),
				zap.Error(err))
			return finish(Result{
				Success:    false,
				Response:   parser.ApologyMessage,
				Iterations: iter,
				Error:      err.Error(),
			})
		}
		log.Debug("LLM responded",
			zap.Int("iteration", iter),
			zap.Duration("duration", time.Since(start)),
			zap.Int("chars", len(raw)))

		resp := l.parser.Parse(raw, hasResults, records)
		if resp.Type == parser.TypeText {
			log.Info("Turn complete",
				zap.Int("iterations", iter),
				zap.Int("tool_calls", len(records)))
			return finish(Result{
				Success:    true,
				Response:   resp.Content,
				Iterations: iter,
			})
		}

		log.Info("Executing tool calls",
			zap.Int("iteration", iter),
			zap.Strings("tools", callNames(resp.Calls)))

		batch := l.executor.RunBatch(ctx, resp.Calls, executor.ListLookup(req.Tools), conv)
		records = append(records, batch...)

		transcript = append(transcript,
			llm.Turn{Role: llm.RoleAssistant, Content: describeCalls(batch)},
			llm.Turn{Role: llm.RoleToolResults, Content: describeResults(batch)},
		)
		hasResults = true
	}

	log.Warn("Iteration budget exhausted",
		zap.Int("max_iterations", maxIter),
		zap.Int("tool_calls", len(records)))

	return finish(Result{
		Success:    false,
		Response:   RephraseMessage,
		Iterations: maxIter,
		Error:      fmt.Sprintf("no final answer after %d iterations", maxIter),
	})
}

func callNames(calls []types.ToolCall) []string {
	names := make([]string, len(calls))
	for i, c := range calls {
		names[i] = c.Name
	}
	return names
}

// describeCalls renders the ASSISTANT transcript entry for a batch.
func describeCalls(batch []types.ToolCallRecord) string {
	var sb strings.Builder
	sb.WriteString("Called tools:")
	for _, r := range batch {
		params, _ := json.Marshal(r.Params)
		fmt.Fprintf(&sb, "\n- %s %s", r.Tool, params)
	}
	return sb.String()
}

// describeResults renders the TOOL RESULTS entry: serialized data on
// success, "Error: <message>" on failure.
func describeResults(batch []types.ToolCallRecord) string {
	var sb strings.Builder
	for i, r := range batch {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%s: ", r.Tool)
		if !r.Result.Success {
			sb.WriteString("Error: " + r.Result.Error)
			continue
		}
		if r.Result.Data == nil {
			sb.WriteString("ok")
			continue
		}
		data, err := json.Marshal(r.Result.Data)
		if err != nil {
			data = []byte(fmt.Sprintf("%v", r.Result.Data))
		}
		if len(data) > maxResultChars {
			data = append(truncateUTF8(data, maxResultChars), "..."...)
		}
		sb.Write(data)
	}
	return sb.String()
}

// truncateUTF8 cuts b to at most n bytes without splitting a rune.
func truncateUTF8(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	for n > 0 && !utf8.RuneStart(b[n]) {
		n--
	}
	return b[:n:n]
}
