// Package executor runs tool calls: it validates parameters, contains tool
// failures, and records entity tracking and undo actions on the
// conversation context.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/ashutoshrp06/taskmate/internal/conversation"
	"github.com/ashutoshrp06/taskmate/internal/tools"
	"github.com/ashutoshrp06/taskmate/internal/types"
	"github.com/ashutoshrp06/taskmate/internal/validator"
	"go.uber.org/zap"
)

type Executor struct {
	logger *zap.Logger
}

func NewExecutor(logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		logger: logger,
	}
}

// Execute validates params, runs the tool and, on success, applies its
// tracking and undo bookkeeping to conv. It never panics and never returns
// an error: every failure is a failed ToolResult.
func (e *Executor) Execute(ctx context.Context, tool tools.Tool, params map[string]any, conv *conversation.Context) types.ToolResult {
	start := time.Now()
	name := tool.Name()

	if check := validator.Validate(params, tool); !check.Valid {
		e.logger.Info("Tool parameters rejected",
			zap.String("tool", name),
			zap.String("reason", check.Error))
		return types.Fail(check.Error)
	}

	e.logger.Debug("Executing tool",
		zap.String("tool", name),
		zap.Any("params", params))

	result := e.invoke(ctx, tool, params, conv).Normalize()

	if result.Success && conv != nil {
		if result.Track != nil {
			conv.Track(*result.Track)
		}
		if result.Undo != nil {
			conv.PushUndo(*result.Undo)
		}
	}

	fields := []zap.Field{
		zap.String("tool", name),
		zap.Bool("success", result.Success),
		zap.Duration("duration", time.Since(start)),
	}
	if !result.Success {
		fields = append(fields, zap.String("error", result.Error))
	}
	e.logger.Info("Tool executed", fields...)

	return result
}

// invoke is the failure boundary around a tool body.
func (e *Executor) invoke(ctx context.Context, tool tools.Tool, params map[string]any, conv *conversation.Context) (result types.ToolResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Tool panicked",
				zap.String("tool", tool.Name()),
				zap.Any("panic", r))
			result = types.Fail(fmt.Sprintf("%s failed: %v", tool.Name(), r))
		}
	}()
	return tool.Execute(ctx, params, conv)
}
