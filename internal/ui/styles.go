package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette is the small set of colours the chat view draws with.
type Palette struct {
	Brand  lipgloss.Color
	Person lipgloss.Color
	Ink    lipgloss.Color
	Faint  lipgloss.Color
	Done   lipgloss.Color
	Failed lipgloss.Color
	Audit  lipgloss.Color
}

// DefaultPalette is tuned for dark terminals.
func DefaultPalette() Palette {
	return Palette{
		Brand:  lipgloss.Color("#14B8A6"),
		Person: lipgloss.Color("#60A5FA"),
		Ink:    lipgloss.Color("#E5E7EB"),
		Faint:  lipgloss.Color("#6B7280"),
		Done:   lipgloss.Color("#22C55E"),
		Failed: lipgloss.Color("#F87171"),
		Audit:  lipgloss.Color("#A78BFA"),
	}
}

// Styles holds one style per thing the chat view renders.
type Styles struct {
	Frame lipgloss.Style
	Title lipgloss.Style

	// Conversation lines, keyed by chatMessage.role.
	You       lipgloss.Style
	Assistant lipgloss.Style
	Note      lipgloss.Style

	// Tool-call audit entries.
	Call       lipgloss.Style
	CallName   lipgloss.Style
	CallArgs   lipgloss.Style
	CallOK     lipgloss.Style
	CallFailed lipgloss.Style
	CallData   lipgloss.Style

	Prompt   lipgloss.Style
	Spinner  lipgloss.Style
	Thinking lipgloss.Style

	Key    lipgloss.Style
	Hint   lipgloss.Style
	Footer lipgloss.Style
}

// NewStyles derives the view styles from p.
func NewStyles(p Palette) Styles {
	plain := lipgloss.NewStyle()
	indented := plain.PaddingLeft(2)

	return Styles{
		Frame: plain.Padding(1, 2),
		Title: plain.Foreground(p.Brand).Bold(true),

		You:       indented.Foreground(p.Person).Bold(true),
		Assistant: indented.Foreground(p.Ink),
		Note:      indented.Foreground(p.Faint).Italic(true),

		Call: plain.
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(p.Audit).
			PaddingLeft(1).
			MarginLeft(2),
		CallName:   plain.Foreground(p.Audit).Bold(true),
		CallArgs:   plain.Foreground(p.Faint),
		CallOK:     plain.Foreground(p.Done),
		CallFailed: plain.Foreground(p.Failed).Bold(true),
		CallData:   plain.Foreground(p.Ink).Faint(true),

		Prompt:   plain.Foreground(p.Brand).Bold(true),
		Spinner:  plain.Foreground(p.Brand),
		Thinking: plain.Foreground(p.Faint),

		Key:    plain.Foreground(p.Brand),
		Hint:   plain.Foreground(p.Faint),
		Footer: plain.Foreground(p.Faint).MarginTop(1),
	}
}

// DefaultStyles returns NewStyles(DefaultPalette()).
func DefaultStyles() Styles {
	return NewStyles(DefaultPalette())
}

// Role returns the style for a conversation line.
func (s Styles) Role(role string) lipgloss.Style {
	switch role {
	case "user":
		return s.You
	case "assistant":
		return s.Assistant
	default:
		return s.Note
	}
}

// Banner is the header shown above the conversation.
func Banner() string {
	return `  _             _                     _
 | |_ __ _  ___| | ___ __ ___   __ _| |_ ___
 | __/ _' |/ __| |/ / '_ ' _ \ / _' | __/ _ \
 | || (_| |\__ \   <| | | | | | (_| | ||  __/
  \__\__,_||___/_|\_\_| |_| |_|\__,_|\__\___|

  Your tasks, people and reviews, in plain words`
}
