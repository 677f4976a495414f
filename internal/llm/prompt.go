package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/ashutoshrp06/taskmate/internal/conversation"
	"github.com/ashutoshrp06/taskmate/internal/tools"
)

// Role labels one transcript block.
type Role string

const (
	RoleUser        Role = "USER"
	RoleAssistant   Role = "ASSISTANT"
	RoleToolResults Role = "TOOL RESULTS"
)

// Turn is one transcript entry.
type Turn struct {
	Role    Role
	Content string
}

// DefaultCharBudget caps final answers when no budget is configured.
const DefaultCharBudget = 300

// maxHintTasks bounds how many tracked tasks are listed as hints.
const maxHintTasks = 10

// PromptInput is everything one prompt is built from.
type PromptInput struct {
	Tools      []tools.Tool
	Transcript []Turn
	Context    *conversation.Context
	// HasToolResults switches the instructions from "emit tool calls" to
	// "answer in prose".
	HasToolResults bool
}

// PromptBuilder renders agent prompts.
type PromptBuilder struct {
	charBudget int
	now        func() time.Time
}

func NewPromptBuilder(charBudget int) *PromptBuilder {
	if charBudget <= 0 {
		charBudget = DefaultCharBudget
	}
	return &PromptBuilder{charBudget: charBudget, now: time.Now}
}

// Build renders the system prompt, instructions, context hints and
// transcript into a single completion prompt.
func (b *PromptBuilder) Build(in PromptInput) string {
	var sb strings.Builder

	sb.WriteString("You are taskmate, a personal task assistant. You manage the user's tasks, ")
	sb.WriteString("the people they work with and their settings by calling tools.\n")
	fmt.Fprintf(&sb, "Today is %s.\n\n", b.now().Format("Monday, 2006-01-02"))

	sb.WriteString("Available tools:\n")
	sb.WriteString(tools.Describe(in.Tools))
	sb.WriteString("\n")

	// ─── instructions ─────────────────────────────────────────────────────
	if in.HasToolResults {
		b.writeAnswerInstructions(&sb)
	} else {
		writeToolCallInstructions(&sb)
	}

	// ─── context hints ────────────────────────────────────────────────────
	if hints := contextHints(in.Context); hints != "" {
		sb.WriteString("\nWhat the user was just looking at:\n")
		sb.WriteString(hints)
	}

	// ─── transcript ───────────────────────────────────────────────────────
	sb.WriteString("\nConversation:\n")
	for _, turn := range in.Transcript {
		fmt.Fprintf(&sb, "%s: %s\n\n", turn.Role, turn.Content)
	}
	sb.WriteString(string(RoleAssistant) + ":")

	return sb.String()
}

func writeToolCallInstructions(sb *strings.Builder) {
	sb.WriteString(`To act, reply with ONLY a JSON array of tool calls and nothing else:
[{"tool": "create_task", "parameters": {"title": "Buy milk"}}]
Calls run in order. A later call may use a value returned by an earlier one
with ${tool_name.field}, for example {"taskId": "${find_tasks.tasks.0.id}"}.
Dates use YYYY-MM-DD. When the user refers to "2" or "the second one", use the
id of that numbered task below.
If no tool is needed, reply in plain sentences without any JSON.
`)
}

func (b *PromptBuilder) writeAnswerInstructions(sb *strings.Builder) {
	sb.WriteString("The tool results below answer the user's request.\n")
	sb.WriteString("Do NOT output JSON, code, brackets or tool calls.\n")
	fmt.Fprintf(sb, "Reply to the user in plain, friendly sentences, under %d characters.\n", b.charBudget)
	sb.WriteString("If a tool failed, say so briefly and suggest what the user can try.\n")
}

// contextHints lists the tracked entities so the model can resolve
// references like "complete 2" or "remind him".
func contextHints(conv *conversation.Context) string {
	if conv == nil {
		return ""
	}

	var sb strings.Builder
	if n := len(conv.LastTasks); n > 0 {
		sb.WriteString("Recent tasks:\n")
		for i, t := range conv.LastTasks {
			if i == maxHintTasks {
				break
			}
			status := ""
			if t.Status != "" {
				status = " [" + t.Status + "]"
			}
			fmt.Fprintf(&sb, "  %d. %s (id: %s)%s\n", i+1, t.Title, t.ID, status)
		}
	}
	if len(conv.LastPeople) > 0 {
		sb.WriteString("Recent people:\n")
		for _, p := range conv.LastPeople {
			fmt.Fprintf(&sb, "  - %s (id: %s)\n", p.Name, p.ID)
		}
	}
	if conv.LastCreatedID != "" {
		fmt.Fprintf(&sb, "Last created id: %s\n", conv.LastCreatedID)
	}
	if conv.ActiveFlow != conversation.FlowNone {
		fmt.Fprintf(&sb, "Active flow: %s\n", conv.ActiveFlow)
	}
	return sb.String()
}
