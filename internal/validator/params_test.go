package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/ashutoshrp06/taskmate/internal/tools"
)

var taskSchema = tools.Object(map[string]tools.Property{
	"title":    {Type: tools.TypeString},
	"priority": {Type: tools.TypeNumber},
	"count":    {Type: tools.TypeInteger},
	"urgent":   {Type: tools.TypeBoolean},
	"tags":     {Type: tools.TypeArray, Items: &tools.Property{Type: tools.TypeString}},
	"meta":     {Type: tools.TypeObject},
	"lists":    {Type: tools.TypeArray, Items: &tools.Property{Type: tools.TypeString, Enum: []string{"action", "someday"}}},
	"type":     {Type: tools.TypeString, Enum: []string{"action", "project", "waiting", "someday"}},
}, "title")

func TestValidateParams(t *testing.T) {
	tests := []struct {
		name    string
		params  map[string]any
		wantErr string
	}{
		{"minimal", map[string]any{"title": "Buy milk"}, ""},
		{"nil params", nil, "parameters must be an object"},
		{"missing required", map[string]any{}, "missing required parameter: title"},
		{"explicit null required", map[string]any{"title": nil}, "missing required parameter: title"},
		{"wrong string type", map[string]any{"title": 42.0}, "parameter title must be string, got number"},
		{"number as float", map[string]any{"title": "x", "priority": 2.5}, ""},
		{"number as numeric string", map[string]any{"title": "x", "priority": " 3 "}, ""},
		{"number as word", map[string]any{"title": "x", "priority": "high"}, "parameter priority must be number, got string"},
		{"integer whole", map[string]any{"title": "x", "count": 4.0}, ""},
		{"integer fractional", map[string]any{"title": "x", "count": 4.5}, "parameter count must be integer, got number"},
		{"boolean", map[string]any{"title": "x", "urgent": true}, ""},
		{"boolean as string", map[string]any{"title": "x", "urgent": "yes"}, "parameter urgent must be boolean, got string"},
		{"array", map[string]any{"title": "x", "tags": []any{"a"}}, ""},
		{"empty array", map[string]any{"title": "x", "tags": []any{}}, ""},
		{"array item wrong type", map[string]any{"title": "x", "tags": []any{"a", 2.0}}, "parameter tags[1] must be string, got number"},
		{"array item null", map[string]any{"title": "x", "tags": []any{nil}}, "parameter tags[0] must not be null"},
		{"array item enum", map[string]any{"title": "x", "lists": []any{"action", "errand"}}, "parameter lists[1] must be one of: action, someday"},
		{"object is not array", map[string]any{"title": "x", "tags": map[string]any{}}, "parameter tags must be array, got object"},
		{"array is not object", map[string]any{"title": "x", "meta": []any{}}, "parameter meta must be object, got array"},
		{"enum member", map[string]any{"title": "x", "type": "project"}, ""},
		{"enum non-member", map[string]any{"title": "x", "type": "errand"}, "parameter type must be one of: action, project, waiting, someday"},
		{"unknown keys ignored", map[string]any{"title": "x", "colour": "blue"}, ""},
		{"optional null ignored", map[string]any{"title": "x", "priority": nil}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateParams(tt.params, taskSchema)
			if tt.wantErr == "" {
				if !got.Valid {
					t.Fatalf("ValidateParams() error = %q, want valid", got.Error)
				}
				return
			}
			if got.Valid {
				t.Fatalf("ValidateParams() valid, want error %q", tt.wantErr)
			}
			if got.Error != tt.wantErr {
				t.Errorf("ValidateParams() error = %q, want %q", got.Error, tt.wantErr)
			}
		})
	}
}

func TestValidateParamsDeterministic(t *testing.T) {
	params := map[string]any{"title": 1.0, "priority": "x", "urgent": "y"}
	first := ValidateParams(params, taskSchema)
	for i := 0; i < 50; i++ {
		if got := ValidateParams(params, taskSchema); got != first {
			t.Fatalf("run %d: got %+v, want %+v", i, got, first)
		}
	}
	// Sorted key order means priority is reported before title and urgent.
	if !strings.HasPrefix(first.Error, "parameter priority") {
		t.Errorf("first error = %q, want priority first", first.Error)
	}
}

func TestInputValidator(t *testing.T) {
	v := NewInputValidator(10)

	tests := []struct {
		input   string
		wantErr bool
	}{
		{"hi", false},
		{"   ", true},
		{"", true},
		{"this is far too long", true},
		{string([]byte{0xff, 0xfe}), true},
	}

	for _, tt := range tests {
		err := v.Validate(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}

	if err := v.Validate(" "); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("Validate(blank) = %v, want ErrEmptyMessage", err)
	}

	if got := v.Sanitize("  buy \t milk\n "); got != "buy milk" {
		t.Errorf("Sanitize() = %q, want %q", got, "buy milk")
	}
}
