package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/ashutoshrp06/taskmate/internal/conversation"
	"github.com/ashutoshrp06/taskmate/internal/types"
)

// MockTool for testing the framework
type MockTool struct {
	name        string
	description string
	schema      Schema
}

func (m *MockTool) Name() string        { return m.name }
func (m *MockTool) Description() string { return m.description }
func (m *MockTool) Schema() Schema      { return m.schema }
func (m *MockTool) Execute(context.Context, map[string]any, *conversation.Context) types.ToolResult {
	return types.OK("mock output")
}

func TestRegistry_Register(t *testing.T) {
	registry := NewRegistry()
	tool := &MockTool{name: "test_tool", description: "A test tool"}

	if err := registry.Register(tool); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := registry.Register(tool); err == nil {
		t.Fatal("expected error for duplicate registration")
	}

	if err := registry.Register(&MockTool{}); err == nil {
		t.Fatal("expected error for empty tool name")
	}
}

func TestRegistry_Get(t *testing.T) {
	registry := NewRegistry()
	registry.MustRegister(&MockTool{name: "test_tool"})

	found, ok := registry.Get("test_tool")
	if !ok {
		t.Fatal("expected to find tool")
	}
	if found.Name() != "test_tool" {
		t.Fatalf("expected 'test_tool', got %s", found.Name())
	}

	if _, ok := registry.Get("nonexistent"); ok {
		t.Fatal("expected not to find nonexistent tool")
	}
}

func TestRegistry_ListSorted(t *testing.T) {
	registry := NewRegistry()
	registry.MustRegister(&MockTool{name: "tool_b"})
	registry.MustRegister(&MockTool{name: "tool_a"})

	names := registry.List()
	if len(names) != 2 || names[0] != "tool_a" || names[1] != "tool_b" {
		t.Fatalf("List() = %v, want [tool_a tool_b]", names)
	}

	all := registry.All()
	if all[0].Name() != "tool_a" {
		t.Fatalf("All()[0] = %s, want tool_a", all[0].Name())
	}
}

func TestDefinition_Execute(t *testing.T) {
	def := &Definition{
		ToolName: "echo",
		Run: func(_ context.Context, params map[string]any, _ *conversation.Context) types.ToolResult {
			return types.OK(params["message"])
		},
	}

	result := def.Execute(context.Background(), map[string]any{"message": "hello"}, nil)
	if !result.Success || result.Data != "hello" {
		t.Fatalf("Execute() = %+v, want success with data 'hello'", result)
	}

	empty := &Definition{ToolName: "empty"}
	if res := empty.Execute(context.Background(), nil, nil); res.Success {
		t.Fatal("expected failure for definition without body")
	}
}

func TestSchema_PropertyNames(t *testing.T) {
	s := Object(map[string]Property{
		"zeta":  {Type: TypeString},
		"alpha": {Type: TypeString},
		"title": {Type: TypeString},
	}, "title")

	got := strings.Join(s.PropertyNames(), ",")
	if got != "title,alpha,zeta" {
		t.Errorf("PropertyNames() = %q, want %q", got, "title,alpha,zeta")
	}
}

func TestDescribe(t *testing.T) {
	list := []Tool{
		&MockTool{
			name:        "create_task",
			description: "Create a task",
			schema: Object(map[string]Property{
				"title": {Type: TypeString, Description: "What to do"},
				"type":  {Type: TypeString, Enum: []string{"action", "project"}},
			}, "title"),
		},
	}

	out := Describe(list)
	for _, want := range []string{
		"- create_task: Create a task",
		"title (string, required): What to do",
		"type (string, optional) [one of: action, project]",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Describe() missing %q in:\n%s", want, out)
		}
	}

	if Describe(nil) != "No tools available." {
		t.Error("Describe(nil) should report no tools")
	}
}

func TestLookup(t *testing.T) {
	list := []Tool{&MockTool{name: "a"}, &MockTool{name: "b"}}
	if tool, ok := Lookup(list, "b"); !ok || tool.Name() != "b" {
		t.Fatal("expected to find b")
	}
	if _, ok := Lookup(list, "c"); ok {
		t.Fatal("did not expect to find c")
	}
}
