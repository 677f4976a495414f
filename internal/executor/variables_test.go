package executor

import (
	"fmt"
	"strings"
	"testing"
)

// ─── AddResult ────────────────────────────────────────────────────────────────

func TestNewVariableResolver_Empty(t *testing.T) {
	vr := NewVariableResolver()
	if vr.HasResult("anything") {
		t.Error("fresh resolver should have no results")
	}
}

func TestAddResult_Map(t *testing.T) {
	vr := NewVariableResolver()
	vr.AddResult("create_task", map[string]any{"id": "t1", "title": "Buy milk"})

	if !vr.HasResult("create_task") {
		t.Fatal("result should be registered after AddResult")
	}
	got, err := vr.Resolve("${create_task.id}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "t1" {
		t.Errorf("Resolve() = %q, want %q", got, "t1")
	}
}

func TestAddResult_Struct(t *testing.T) {
	type person struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	vr := NewVariableResolver()
	vr.AddResult("add_person", person{ID: "p1", Name: "Sam"})

	got, err := vr.Resolve("${add_person.name}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Sam" {
		t.Errorf("Resolve() = %q, want %q", got, "Sam")
	}
}

func TestAddResult_JSONString(t *testing.T) {
	vr := NewVariableResolver()
	vr.AddResult("find_tasks", `{"tasks":[{"id":"t7","title":"Call Sam"}]}`)

	got, err := vr.Resolve("${find_tasks.tasks.0.id}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "t7" {
		t.Errorf("Resolve() = %q, want %q", got, "t7")
	}
}

func TestAddResult_PlainString(t *testing.T) {
	vr := NewVariableResolver()
	vr.AddResult("get_settings", "plain text output")

	got, err := vr.Resolve("${get_settings.value}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "plain text output" {
		t.Errorf("Resolve() = %q, want raw string", got)
	}
}

func TestAddResult_EmptyIgnored(t *testing.T) {
	vr := NewVariableResolver()
	vr.AddResult("silent", "")
	vr.AddResult("nothing", nil)

	if vr.HasResult("silent") || vr.HasResult("nothing") {
		t.Error("empty output should not be stored")
	}
}

// ─── Resolve ──────────────────────────────────────────────────────────────────

func TestResolve(t *testing.T) {
	vr := NewVariableResolver()
	vr.AddResult("create_task", map[string]any{
		"id":       "t1",
		"title":    "Buy milk",
		"priority": 2,
		"done":     false,
		"tags":     []string{"home", "errand"},
		"person":   map[string]any{"name": "Sam"},
	})

	tests := []struct {
		in      string
		want    string
		wantErr string
	}{
		{in: "no placeholders here", want: "no placeholders here"},
		{in: "${create_task.id}", want: "t1"},
		{in: "Follow up on ${create_task.title} with ${create_task.person.name}", want: "Follow up on Buy milk with Sam"},
		{in: "${create_task.priority}", want: "2"},
		{in: "${create_task.done}", want: "false"},
		{in: "${create_task.tags.1}", want: "errand"},
		{in: "${create_task.tags.5}", wantErr: "out of range"},
		{in: "${create_task.missing}", wantErr: `no field "missing"`},
		{in: "${delete_task.id}", wantErr: "no result from delete_task"},
		{in: "${create_task}", wantErr: "expected tool.field"},
		{in: "${create_task.id.deeper}", wantErr: "cannot descend"},
	}

	for _, tt := range tests {
		got, err := vr.Resolve(tt.in)
		if tt.wantErr != "" {
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Resolve(%q) error = %v, want containing %q", tt.in, err, tt.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("Resolve(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// ─── ResolveParams ────────────────────────────────────────────────────────────

func TestResolveParams_Nil(t *testing.T) {
	got, err := NewVariableResolver().ResolveParams(nil)
	if err != nil || got != nil {
		t.Fatalf("ResolveParams(nil) = %v, %v; want nil, nil", got, err)
	}
}

func TestResolveParams_PreservesTypeAndOriginal(t *testing.T) {
	vr := NewVariableResolver()
	vr.AddResult("list_tasks", map[string]any{"count": 3, "tasks": []any{map[string]any{"id": "t9"}}})

	original := map[string]any{
		"taskId": "${list_tasks.tasks.0.id}",
		"limit":  "${list_tasks.count}",
		"note":   "had ${list_tasks.count} tasks",
		"nested": map[string]any{"ref": "${list_tasks.tasks.0.id}"},
		"list":   []any{"static", "${list_tasks.count}"},
		"static": true,
	}

	resolved, err := vr.ResolveParams(original)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resolved["taskId"] != "t9" {
		t.Errorf("taskId = %v, want t9", resolved["taskId"])
	}
	if resolved["limit"] != float64(3) {
		t.Errorf("limit = %#v, want float64(3)", resolved["limit"])
	}
	if resolved["note"] != "had 3 tasks" {
		t.Errorf("note = %v", resolved["note"])
	}
	if nested := resolved["nested"].(map[string]any); nested["ref"] != "t9" {
		t.Errorf("nested.ref = %v, want t9", nested["ref"])
	}
	if list := resolved["list"].([]any); list[1] != float64(3) {
		t.Errorf("list[1] = %v, want 3", list[1])
	}
	if resolved["static"] != true {
		t.Error("non-string values should pass through")
	}
	if original["taskId"] != "${list_tasks.tasks.0.id}" {
		t.Error("ResolveParams should not modify the original params map")
	}
}

func TestResolveParams_ErrorNamesParameter(t *testing.T) {
	_, err := NewVariableResolver().ResolveParams(map[string]any{"taskId": "${create_task.id}"})
	if err == nil {
		t.Fatal("expected error for unresolvable reference")
	}
	if !strings.Contains(err.Error(), "taskId") || !strings.Contains(err.Error(), "create_task") {
		t.Errorf("error should name parameter and tool, got: %v", err)
	}
}

// ─── ContainsVariables ────────────────────────────────────────────────────────

func TestContainsVariables(t *testing.T) {
	tests := []struct {
		params map[string]any
		want   bool
	}{
		{map[string]any{"title": "${create_task.title}"}, true},
		{map[string]any{"title": "Buy milk", "count": 2}, false},
		{map[string]any{"outer": map[string]any{"inner": "${a.b}"}}, true},
		{map[string]any{"list": []any{"x", "${a.b}"}}, true},
		{map[string]any{"dollar": "$5 budget"}, false},
		{nil, false},
	}
	for i, tt := range tests {
		if got := ContainsVariables(tt.params); got != tt.want {
			t.Errorf("case %d: ContainsVariables(%v) = %v, want %v", i, tt.params, got, tt.want)
		}
	}
}

// ─── Benchmarks ───────────────────────────────────────────────────────────────

func BenchmarkVariableResolver_AddResult(b *testing.B) {
	vr := NewVariableResolver()
	data := map[string]any{"id": "t1", "title": "Buy milk", "status": "open"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		vr.AddResult(fmt.Sprintf("tool_%d", i%10), data)
	}
}

func BenchmarkVariableResolver_ResolveParams(b *testing.B) {
	vr := NewVariableResolver()
	vr.AddResult("create_task", map[string]any{"id": "t1", "title": "Buy milk"})

	params := map[string]any{
		"taskId": "${create_task.id}",
		"note":   "re: ${create_task.title}",
		"static": "value",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = vr.ResolveParams(params)
	}
}
