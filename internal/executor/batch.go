package executor

import (
	"context"
	"fmt"

	"github.com/ashutoshrp06/taskmate/internal/conversation"
	"github.com/ashutoshrp06/taskmate/internal/tools"
	"github.com/ashutoshrp06/taskmate/internal/types"
	"go.uber.org/zap"
)

// LookupFunc finds a tool by name.
type LookupFunc func(name string) (tools.Tool, bool)

// ListLookup returns a LookupFunc over a fixed tool list.
func ListLookup(list []tools.Tool) LookupFunc {
	return func(name string) (tools.Tool, bool) {
		return tools.Lookup(list, name)
	}
}

// RunBatch executes calls one at a time, in order, so a call can rely on
// the side effects of the calls before it. A failing call does not stop
// the batch; cancellation does, and every call not yet run is recorded as
// failed.
func (e *Executor) RunBatch(ctx context.Context, calls []types.ToolCall, lookup LookupFunc, conv *conversation.Context) []types.ToolCallRecord {
	resolver := NewVariableResolver()
	records := make([]types.ToolCallRecord, 0, len(calls))

	for i, call := range calls {
		if err := ctx.Err(); err != nil {
			e.logger.Warn("Batch cancelled",
				zap.Int("completed", i),
				zap.Int("remaining", len(calls)-i),
				zap.Error(err))
			for _, rest := range calls[i:] {
				records = append(records, types.ToolCallRecord{
					Tool:   rest.Name,
					Params: rest.Parameters,
					Result: types.Failf("cancelled: %v", err),
				})
			}
			break
		}

		records = append(records, e.runOne(ctx, call, lookup, resolver, conv))
	}

	return records
}

func (e *Executor) runOne(ctx context.Context, call types.ToolCall, lookup LookupFunc, resolver *VariableResolver, conv *conversation.Context) types.ToolCallRecord {
	record := types.ToolCallRecord{Tool: call.Name, Params: call.Parameters}

	tool, ok := lookup(call.Name)
	if !ok {
		e.logger.Warn("Model called unknown tool", zap.String("tool", call.Name))
		record.Result = types.Fail(fmt.Sprintf("Unknown tool: %s", call.Name))
		return record
	}

	if ContainsVariables(call.Parameters) {
		resolved, err := resolver.ResolveParams(call.Parameters)
		if err != nil {
			e.logger.Info("Variable resolution failed",
				zap.String("tool", call.Name),
				zap.Error(err))
			record.Result = types.Fail(err.Error())
			return record
		}
		record.Params = resolved
	}

	record.Result = e.Execute(ctx, tool, record.Params, conv)
	if record.Result.Success {
		resolver.AddResult(call.Name, record.Result.Data)
	}
	return record
}
