// Package ui provides the terminal chat interface using Bubble Tea.
package ui

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ashutoshrp06/taskmate/internal/types"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const helpText = `Available commands:
  help, ?     Show this help
  clear       Clear the screen and forget recent context
  exit, quit  Exit taskmate

Try:
  "buy milk"
  "what's due this week?"
  "done with the call to Sam"
  "complete 2"            (a number from the last list shown)
  "undo"                  (reverses the last change)
  "let's do my weekly review"`

const toolsText = `Tools the assistant can use:

  Tasks:     create_task, list_tasks, find_tasks, update_task,
             complete_task, delete_task
  People:    add_person, find_person, remove_person
  Settings:  set_setting, get_settings
  Review:    start_review, end_review
  History:   undo`

// maxOutputChars caps one rendered tool result.
const maxOutputChars = 300

// Model is the Bubble Tea model for the chat UI.
type Model struct {
	// UI Components
	textInput textinput.Model
	spinner   spinner.Model
	viewport  viewport.Model
	styles    Styles

	// State
	state    types.AgentState
	messages []chatMessage
	width    int
	height   int
	ready    bool
	quitting bool
	err      error

	// Agent hooks (injected)
	processQuery func(query string) tea.Cmd
	clearHistory func() tea.Cmd
}

// chatMessage represents a message in the chat history.
type chatMessage struct {
	role    string // "user", "assistant", "system", "tool"
	content string
	tool    *toolCall
}

// toolCall is one entry of a turn's audit trail.
type toolCall struct {
	name    string
	params  map[string]any
	output  string
	success bool
	error   string
}

// NewModel creates a new UI model. clearHistory may be nil.
func NewModel(processQuery func(query string) tea.Cmd, clearHistory func() tea.Cmd) Model {
	ti := textinput.New()
	ti.Placeholder = `Tell me what's on your mind... (e.g. "call Sam about the lease tomorrow")`
	ti.Focus()
	ti.CharLimit = 2000
	ti.Width = 80

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = DefaultStyles().Spinner

	vp := viewport.New(0, 0)
	vp.KeyMap = viewport.DefaultKeyMap()

	return Model{
		textInput:    ti,
		spinner:      s,
		viewport:     vp,
		styles:       DefaultStyles(),
		state:        types.StateIdle,
		messages:     make([]chatMessage, 0),
		processQuery: processQuery,
		clearHistory: clearHistory,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
	)
}

// headerHeight returns the number of terminal lines occupied by the banner.
func (m Model) headerHeight() int {
	banner := m.styles.Title.Render(Banner())
	return lipgloss.Height(banner) + 2
}

// footerHeight is one blank line, the input line and the help bar.
func (m Model) footerHeight() int {
	return 4
}

// updateViewport rebuilds the viewport content and scrolls to the bottom.
func (m *Model) updateViewport() {
	var b strings.Builder

	for _, msg := range m.messages {
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}

	if m.state != types.StateIdle {
		b.WriteString(m.renderStatus())
		b.WriteString("\n")
	}

	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			if m.state == types.StateIdle {
				m.quitting = true
				return m, tea.Quit
			}
			m.state = types.StateIdle
			return m, nil

		case tea.KeyEnter:
			if m.state != types.StateIdle {
				return m, nil
			}

			query := strings.TrimSpace(m.textInput.Value())
			if query == "" {
				return m, nil
			}

			if handled, cmd := m.handleCommand(query); handled {
				m.textInput.SetValue("")
				m.updateViewport()
				return m, cmd
			}

			m.messages = append(m.messages, chatMessage{
				role:    "user",
				content: query,
			})

			m.textInput.SetValue("")
			m.state = types.StateThinking
			m.updateViewport()

			if m.processQuery != nil {
				cmds = append(cmds, m.processQuery(query))
			}

			return m, tea.Batch(cmds...)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textInput.Width = msg.Width - 10

		vpHeight := max(msg.Height-m.headerHeight()-m.footerHeight(), 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, vpHeight)
			m.viewport.KeyMap = viewport.DefaultKeyMap()
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = vpHeight
		}

		m.ready = true
		m.updateViewport()

	case types.AgentEvent:
		m = m.handleAgentEvent(msg)
		m.updateViewport()
		return m, m.spinner.Tick

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
		m.updateViewport()

	case clearedMsg:
		m.messages = append(m.messages, chatMessage{role: "system", content: "Context cleared."})
		m.updateViewport()

	case errMsg:
		m.err = msg.err
		m.messages = append(m.messages, chatMessage{role: "system", content: "Error: " + msg.err.Error()})
		m.state = types.StateIdle
		m.updateViewport()
	}

	if m.state == types.StateIdle {
		var tiCmd tea.Cmd
		m.textInput, tiCmd = m.textInput.Update(msg)
		cmds = append(cmds, tiCmd)
	}

	var vpCmd tea.Cmd
	m.viewport, vpCmd = m.viewport.Update(msg)
	cmds = append(cmds, vpCmd)

	return m, tea.Batch(cmds...)
}

// errMsg wraps errors.
type errMsg struct{ err error }

// clearedMsg reports that the conversation context was forgotten.
type clearedMsg struct{}

// handleCommand processes the built-in commands. It reports whether input
// was one.
func (m *Model) handleCommand(input string) (bool, tea.Cmd) {
	switch strings.ToLower(input) {
	case "exit", "quit", "q":
		m.quitting = true
		return true, tea.Quit

	case "clear":
		m.messages = make([]chatMessage, 0)
		if m.clearHistory != nil {
			return true, m.clearHistory()
		}
		return true, nil

	case "help", "?":
		m.messages = append(m.messages, chatMessage{role: "system", content: helpText})
		return true, nil

	case "tools":
		m.messages = append(m.messages, chatMessage{role: "system", content: toolsText})
		return true, nil
	}

	return false, nil
}

// handleAgentEvent records a finished turn.
func (m Model) handleAgentEvent(event types.AgentEvent) Model {
	switch event.State {
	case types.StateError:
		m.err = event.Error
		text := "An error occurred"
		if event.Error != nil {
			text = event.Error.Error()
		}
		m.messages = append(m.messages, chatMessage{
			role:    "system",
			content: "Error: " + text,
		})

	default:
		for _, rec := range event.ToolCalls {
			m.messages = append(m.messages, chatMessage{
				role: "tool",
				tool: newToolCall(rec),
			})
		}
		if event.Response != "" {
			m.messages = append(m.messages, chatMessage{
				role:    "assistant",
				content: event.Response,
			})
		}
	}

	m.state = types.StateIdle
	return m
}

func newToolCall(rec types.ToolCallRecord) *toolCall {
	tc := &toolCall{
		name:    rec.Tool,
		params:  rec.Params,
		success: rec.Result.Success,
		error:   rec.Result.Error,
	}
	if rec.Result.Data != nil {
		if data, err := json.Marshal(rec.Result.Data); err == nil {
			tc.output = string(data)
		} else {
			tc.output = fmt.Sprintf("%v", rec.Result.Data)
		}
	}
	return tc
}

// View renders the UI.
func (m Model) View() string {
	if m.quitting {
		return m.styles.Note.Render("Goodbye!\n")
	}

	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder

	b.WriteString(m.styles.Title.Render(Banner()))
	b.WriteString("\n\n")

	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	b.WriteString(m.styles.Prompt.Render("> "))
	if m.state == types.StateIdle {
		b.WriteString(m.textInput.View())
	} else {
		b.WriteString(m.styles.Thinking.Render("(thinking...)"))
	}
	b.WriteString("\n")
	b.WriteString(m.renderHelpBar())

	return m.styles.Frame.Render(b.String())
}

// renderMessage renders a single chat message.
func (m Model) renderMessage(msg chatMessage) string {
	style := m.styles.Role(msg.role)
	switch msg.role {
	case "user":
		return style.Render("You: " + msg.content)
	case "assistant":
		return style.Render("taskmate: " + msg.content)
	case "tool":
		if msg.tool != nil {
			return m.renderToolCall(msg.tool)
		}
		return ""
	}
	return style.Render(msg.content)
}

// renderToolCall renders one audited tool call.
func (m Model) renderToolCall(t *toolCall) string {
	var b strings.Builder

	b.WriteString(m.styles.CallName.Render(t.name))
	if params := formatParams(t.params); params != "" {
		b.WriteString(" ")
		b.WriteString(m.styles.CallArgs.Render("(" + params + ")"))
	}
	b.WriteString("\n")

	if !t.success {
		b.WriteString(m.styles.CallFailed.Render("  Failed: " + t.error))
		b.WriteString("\n")
		return m.styles.Call.Render(b.String())
	}

	b.WriteString(m.styles.CallOK.Render("  OK"))
	b.WriteString("\n")
	if t.output != "" {
		output := t.output
		if len(output) > maxOutputChars {
			output = output[:maxOutputChars] + "..."
		}
		b.WriteString(m.styles.CallData.Render("  | " + output))
		b.WriteString("\n")
	}

	return m.styles.Call.Render(b.String())
}

// formatParams renders params in key order so the audit trail is stable.
func formatParams(params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, params[k])
	}
	return strings.Join(parts, ", ")
}

// renderStatus renders the current processing status.
func (m Model) renderStatus() string {
	return fmt.Sprintf("%s %s",
		m.spinner.View(),
		m.styles.Thinking.Render(m.state.String()+"..."),
	)
}

// renderHelpBar renders the bottom help bar.
func (m Model) renderHelpBar() string {
	help := []string{
		m.styles.Key.Render("enter") + m.styles.Hint.Render(" send"),
		m.styles.Key.Render("ctrl+c") + m.styles.Hint.Render(" quit"),
		m.styles.Key.Render("help") + m.styles.Hint.Render(" commands"),
		m.styles.Key.Render("clear") + m.styles.Hint.Render(" forget context"),
	}
	return m.styles.Footer.Render(strings.Join(help, "  |  "))
}
