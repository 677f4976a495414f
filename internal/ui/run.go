package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ashutoshrp06/taskmate/internal/types"
	tea "github.com/charmbracelet/bubbletea"
)

// Backend is what the UI needs from the agent.
type Backend interface {
	ProcessQueryCmd(query string) tea.Cmd
	ProcessQuery(ctx context.Context, query string) (*types.AgentEvent, error)
	ClearHistory(ctx context.Context) error
}

// oneShotTimeout bounds a single non-interactive query.
const oneShotTimeout = 120 * time.Second

// Run starts the interactive chat and blocks until the user quits.
func Run(b Backend) error {
	model := NewModel(b.ProcessQueryCmd, func() tea.Cmd {
		return func() tea.Msg {
			if err := b.ClearHistory(context.Background()); err != nil {
				return errMsg{err}
			}
			return clearedMsg{}
		}
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running UI: %w", err)
	}
	return nil
}

// RunOneShot answers a single query on stdout.
func RunOneShot(b Backend, query string, showTools bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), oneShotTimeout)
	defer cancel()

	event, err := b.ProcessQuery(ctx, query)
	if err != nil {
		return err
	}
	fmt.Fprint(os.Stdout, RenderEvent(*event, DefaultStyles(), showTools))
	return nil
}

// RenderEvent formats a finished turn for plain terminal output.
func RenderEvent(event types.AgentEvent, styles Styles, showTools bool) string {
	m := Model{styles: styles}
	out := ""
	if showTools {
		for _, rec := range event.ToolCalls {
			out += m.renderToolCall(newToolCall(rec)) + "\n"
		}
	}
	if event.Response != "" {
		style := styles.Assistant
		if !event.Success {
			style = styles.CallFailed
		}
		out += style.Render(event.Response) + "\n"
	}
	return out
}

// FormatJSON renders a finished turn as indented JSON.
func FormatJSON(event types.AgentEvent) (string, error) {
	data, err := json.MarshalIndent(struct {
		Success   bool                   `json:"success"`
		Response  string                 `json:"response"`
		ToolCalls []types.ToolCallRecord `json:"tool_calls"`
	}{event.Success, event.Response, event.ToolCalls}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
