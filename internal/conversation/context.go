// Package conversation holds the short-lived per-user state that lets a
// follow-up message like "complete the second one" or "undo that" resolve
// against what the assistant just did.
package conversation

import (
	"maps"
	"reflect"
	"slices"
	"time"

	"github.com/ashutoshrp06/taskmate/internal/types"
)

const (
	// MaxUndo bounds the undo stack.
	MaxUndo = 5
	// MaxTracked bounds the recent task and person lists.
	MaxTracked = 10
	// DefaultTTL is how long an untouched context survives.
	DefaultTTL = time.Hour
)

// Flow names a multi-turn interaction the user is in the middle of.
type Flow string

const (
	FlowNone          Flow = ""
	FlowReview        Flow = "review"
	FlowConfirmDelete Flow = "confirm_delete"
	FlowOnboarding    Flow = "onboarding"
)

// Context is the conversation state for one user.
type Context struct {
	UserID        string                  `json:"user_id"`
	LastTasks     []types.TaskReference   `json:"last_tasks,omitempty"`
	LastPeople    []types.PersonReference `json:"last_people,omitempty"`
	LastCreatedID string                  `json:"last_created_id,omitempty"`
	UndoStack     []types.UndoAction      `json:"undo_stack,omitempty"`
	ActiveFlow    Flow                    `json:"active_flow,omitempty"`
	FlowState     map[string]any          `json:"flow_state,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
	ExpiresAt     time.Time               `json:"expires_at"`
}

// New returns an empty context that expires ttl after now.
func New(userID string, now time.Time, ttl time.Duration) *Context {
	return &Context{
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Expired reports whether the context is past its expiry at now.
func (c *Context) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Touch records an update and pushes the expiry out by ttl.
func (c *Context) Touch(now time.Time, ttl time.Duration) {
	c.UpdatedAt = now
	c.ExpiresAt = now.Add(ttl)
}

// Track replaces the recent entity lists with what a tool just surfaced.
func (c *Context) Track(t types.TrackEntities) {
	if t.Tasks != nil {
		c.LastTasks = trim(slices.Clone(t.Tasks), MaxTracked)
	}
	if t.People != nil {
		c.LastPeople = trim(slices.Clone(t.People), MaxTracked)
	}
	if t.LastCreatedID != "" {
		c.LastCreatedID = t.LastCreatedID
	}
}

// PushUndo puts an action on top of the undo stack, dropping the oldest
// entries beyond MaxUndo.
func (c *Context) PushUndo(u types.UndoAction) {
	stack := make([]types.UndoAction, 0, len(c.UndoStack)+1)
	stack = append(stack, u)
	stack = append(stack, c.UndoStack...)
	c.UndoStack = trim(stack, MaxUndo)
}

// PopUndo removes and returns the most recent undo action.
func (c *Context) PopUndo() (types.UndoAction, bool) {
	if len(c.UndoStack) == 0 {
		return types.UndoAction{}, false
	}
	u := c.UndoStack[0]
	c.UndoStack = slices.Clone(c.UndoStack[1:])
	return u, true
}

// StartFlow enters a multi-turn flow with its initial state.
func (c *Context) StartFlow(flow Flow, state map[string]any) {
	c.ActiveFlow = flow
	c.FlowState = maps.Clone(state)
}

// EndFlow leaves the active flow.
func (c *Context) EndFlow() {
	c.ActiveFlow = FlowNone
	c.FlowState = nil
}

// TaskAt resolves a 1-based position in the recent task list.
func (c *Context) TaskAt(position int) (types.TaskReference, bool) {
	if position < 1 || position > len(c.LastTasks) {
		return types.TaskReference{}, false
	}
	return c.LastTasks[position-1], true
}

// Clone returns a copy that shares no slices or maps with c.
func (c *Context) Clone() *Context {
	if c == nil {
		return nil
	}
	out := *c
	out.LastTasks = slices.Clone(c.LastTasks)
	out.LastPeople = slices.Clone(c.LastPeople)
	out.UndoStack = slices.Clone(c.UndoStack)
	out.FlowState = maps.Clone(c.FlowState)
	return &out
}

func trim[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// FlowChange sets the active flow together with its state.
type FlowChange struct {
	Flow  Flow
	State map[string]any
}

// Patch is a partial update of a Context. Nil fields are left unchanged.
type Patch struct {
	LastTasks     *[]types.TaskReference
	LastPeople    *[]types.PersonReference
	LastCreatedID *string
	UndoStack     *[]types.UndoAction
	Flow          *FlowChange
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.LastTasks == nil && p.LastPeople == nil && p.LastCreatedID == nil &&
		p.UndoStack == nil && p.Flow == nil
}

// Apply merges the patch into c, enforcing the list bounds.
func (p Patch) Apply(c *Context) {
	if p.LastTasks != nil {
		c.LastTasks = trim(slices.Clone(*p.LastTasks), MaxTracked)
	}
	if p.LastPeople != nil {
		c.LastPeople = trim(slices.Clone(*p.LastPeople), MaxTracked)
	}
	if p.LastCreatedID != nil {
		c.LastCreatedID = *p.LastCreatedID
	}
	if p.UndoStack != nil {
		c.UndoStack = trim(slices.Clone(*p.UndoStack), MaxUndo)
	}
	if p.Flow != nil {
		c.ActiveFlow = p.Flow.Flow
		c.FlowState = maps.Clone(p.Flow.State)
	}
}

// Diff returns the patch that turns before into after.
func Diff(before, after *Context) Patch {
	var p Patch
	if before == nil {
		before = &Context{}
	}
	if after == nil {
		return p
	}
	if !slices.Equal(before.LastTasks, after.LastTasks) {
		v := slices.Clone(after.LastTasks)
		p.LastTasks = &v
	}
	if !slices.Equal(before.LastPeople, after.LastPeople) {
		v := slices.Clone(after.LastPeople)
		p.LastPeople = &v
	}
	if before.LastCreatedID != after.LastCreatedID {
		v := after.LastCreatedID
		p.LastCreatedID = &v
	}
	if !sameValue(before.UndoStack, after.UndoStack, len(before.UndoStack)+len(after.UndoStack)) {
		v := slices.Clone(after.UndoStack)
		p.UndoStack = &v
	}
	if before.ActiveFlow != after.ActiveFlow || !sameValue(before.FlowState, after.FlowState, len(before.FlowState)+len(after.FlowState)) {
		p.Flow = &FlowChange{Flow: after.ActiveFlow, State: maps.Clone(after.FlowState)}
	}
	return p
}

// sameValue treats nil and empty collections as equal.
func sameValue(a, b any, size int) bool {
	if size == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}
