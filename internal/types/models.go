// Package types defines shared data structures for the task assistant.
package types

import (
	"fmt"
	"time"
)

// ToolCall is a request from the model to run one tool.
// Parameters is nil when the model supplied something other than an object.
type ToolCall struct {
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters"`
}

// ToolResult is the outcome of a single tool execution.
type ToolResult struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
	Undo    *UndoAction    `json:"-"`
	Track   *TrackEntities `json:"-"`
}

// OK returns a successful result carrying data.
func OK(data any) ToolResult {
	return ToolResult{Success: true, Data: data}
}

// Fail returns a failed result with the given message.
func Fail(msg string) ToolResult {
	return ToolResult{Success: false, Error: msg}
}

// Failf is Fail with formatting.
func Failf(format string, args ...any) ToolResult {
	return Fail(fmt.Sprintf(format, args...))
}

// WithUndo attaches an undo action to a result.
func (r ToolResult) WithUndo(u UndoAction) ToolResult {
	r.Undo = &u
	return r
}

// WithTrack attaches entity tracking to a result.
func (r ToolResult) WithTrack(t TrackEntities) ToolResult {
	r.Track = &t
	return r
}

// Normalize enforces the success/error invariant: a failed result carries
// no data and a non-empty error, a successful one carries no error.
func (r ToolResult) Normalize() ToolResult {
	if r.Success {
		r.Error = ""
		return r
	}
	r.Data = nil
	r.Undo = nil
	r.Track = nil
	if r.Error == "" {
		r.Error = "tool failed without an error message"
	}
	return r
}

// TaskReference is a lightweight pointer to a task the user just saw.
type TaskReference struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status,omitempty"`
}

// PersonReference is a lightweight pointer to a person the user just saw.
type PersonReference struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TrackEntities tells the executor which entities a tool surfaced.
// Non-nil slices replace the corresponding context list.
type TrackEntities struct {
	Tasks         []TaskReference   `json:"tasks,omitempty"`
	People        []PersonReference `json:"people,omitempty"`
	LastCreatedID string            `json:"last_created_id,omitempty"`
}

// UndoKind identifies how a side effect is reversed.
type UndoKind string

const (
	UndoDeleteCreated  UndoKind = "delete_created"
	UndoRestoreDeleted UndoKind = "restore_deleted"
	UndoRevertUpdate   UndoKind = "revert_update"
	UndoUncomplete     UndoKind = "uncomplete"
	UndoRestoreRemoved UndoKind = "restore_removed"
)

// Entity kinds referenced by undo actions.
const (
	EntityTask    = "task"
	EntityPerson  = "person"
	EntitySetting = "setting"
)

// UndoAction carries everything needed to reverse one side effect.
type UndoAction struct {
	Kind     UndoKind       `json:"kind"`
	Entity   string         `json:"entity"`
	ID       string         `json:"id"`
	Snapshot map[string]any `json:"snapshot,omitempty"`
	Previous map[string]any `json:"previous,omitempty"`
	Label    string         `json:"label,omitempty"`
	At       time.Time      `json:"at"`
}

// NewDeleteCreated reverses a creation by deleting the created entity.
func NewDeleteCreated(entity, id, label string) UndoAction {
	return UndoAction{Kind: UndoDeleteCreated, Entity: entity, ID: id, Label: label, At: time.Now()}
}

// NewRestoreDeleted reverses a deletion by re-inserting the snapshot.
func NewRestoreDeleted(entity, id string, snapshot map[string]any, label string) UndoAction {
	return UndoAction{Kind: UndoRestoreDeleted, Entity: entity, ID: id, Snapshot: snapshot, Label: label, At: time.Now()}
}

// NewRevertUpdate reverses an update by writing back the previous values.
func NewRevertUpdate(entity, id string, previous map[string]any, label string) UndoAction {
	return UndoAction{Kind: UndoRevertUpdate, Entity: entity, ID: id, Previous: previous, Label: label, At: time.Now()}
}

// NewUncomplete reverses a completion.
func NewUncomplete(id, label string) UndoAction {
	return UndoAction{Kind: UndoUncomplete, Entity: EntityTask, ID: id, Label: label, At: time.Now()}
}

// NewRestoreRemoved reverses removal of a person or other non-task entity.
func NewRestoreRemoved(entity, id string, snapshot map[string]any, label string) UndoAction {
	return UndoAction{Kind: UndoRestoreRemoved, Entity: entity, ID: id, Snapshot: snapshot, Label: label, At: time.Now()}
}

// ToolCallRecord is one entry of the audit trail returned to the caller.
type ToolCallRecord struct {
	Tool   string         `json:"tool"`
	Params map[string]any `json:"params"`
	Result ToolResult     `json:"result"`
}

// AgentState represents the current state of agent processing.
type AgentState int

const (
	StateIdle AgentState = iota
	StateThinking
	StateToolExecuting
	StateResponding
	StateError
)

// String returns a human-readable state name.
func (s AgentState) String() string {
	names := [...]string{
		"Idle",
		"Thinking",
		"Executing tools",
		"Responding",
		"Error",
	}
	if int(s) < len(names) {
		return names[s]
	}
	return "Unknown"
}

// ParameterInfo describes a tool parameter for display.
type ParameterInfo struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Required    bool     `json:"required"`
	Description string   `json:"description"`
	Enum        []string `json:"enum,omitempty"`
}

// ToolInfo contains metadata about a tool for display.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ParameterInfo `json:"parameters"`
}

// AgentEvent reports the outcome of one turn to the UI.
type AgentEvent struct {
	State     AgentState
	Response  string
	Success   bool
	ToolCalls []ToolCallRecord
	Error     error
}
