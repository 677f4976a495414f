// Package tools defines the contract between the agent loop and the
// capabilities the model may invoke.
package tools

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/ashutoshrp06/taskmate/internal/conversation"
	"github.com/ashutoshrp06/taskmate/internal/types"
)

// Tool defines the interface that all tools must implement.
type Tool interface {
	// Name returns the unique identifier the model uses to call the tool.
	Name() string

	// Description returns a human-readable description for the LLM.
	Description() string

	// Schema returns the parameter schema used for validation.
	Schema() Schema

	// Execute runs the tool. Failures are reported in the result, not
	// by panicking.
	Execute(ctx context.Context, params map[string]any, conv *conversation.Context) types.ToolResult
}

// Parameter types understood by the validator.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeArray   = "array"
	TypeObject  = "object"
)

// Property describes one parameter.
type Property struct {
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
	Enum        []string  `json:"enum,omitempty"`
	Items       *Property `json:"items,omitempty"`
}

// Schema is a JSON-Schema style object description.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// IsRequired reports whether name is a required parameter.
func (s Schema) IsRequired(name string) bool {
	return slices.Contains(s.Required, name)
}

// PropertyNames returns the declared parameter names, required ones first,
// each group in a stable order.
func (s Schema) PropertyNames() []string {
	names := make([]string, 0, len(s.Properties))
	for _, r := range s.Required {
		if _, ok := s.Properties[r]; ok {
			names = append(names, r)
		}
	}
	var optional []string
	for name := range s.Properties {
		if !s.IsRequired(name) {
			optional = append(optional, name)
		}
	}
	sort.Strings(optional)
	return append(names, optional...)
}

// Object builds an object schema.
func Object(props map[string]Property, required ...string) Schema {
	return Schema{Type: TypeObject, Properties: props, Required: required}
}

// Func is the body of a Definition.
type Func func(ctx context.Context, params map[string]any, conv *conversation.Context) types.ToolResult

// Definition is the plain-struct form of a Tool.
type Definition struct {
	ToolName        string
	ToolDescription string
	Parameters      Schema
	Run             Func
}

func (d *Definition) Name() string        { return d.ToolName }
func (d *Definition) Description() string { return d.ToolDescription }
func (d *Definition) Schema() Schema      { return d.Parameters }

// Execute runs the definition's body.
func (d *Definition) Execute(ctx context.Context, params map[string]any, conv *conversation.Context) types.ToolResult {
	if d.Run == nil {
		return types.Failf("tool %s has no implementation", d.ToolName)
	}
	return d.Run(ctx, params, conv)
}

// Registry manages tool registration and lookup.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a new tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry.
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool has empty name")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool already registered: %s", name)
	}

	r.tools[name] = tool
	return nil
}

// MustRegister adds a tool to the registry, panicking on error.
func (r *Registry) MustRegister(tool Tool) {
	if err := r.Register(tool); err != nil {
		panic(err)
	}
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, exists := r.tools[name]
	return tool, exists
}

// List returns all registered tool names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns all registered tools sorted by name.
func (r *Registry) All() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name() < tools[j].Name() })
	return tools
}

// Info converts tools to display metadata.
func Info(list []Tool) []types.ToolInfo {
	infos := make([]types.ToolInfo, 0, len(list))
	for _, tool := range list {
		schema := tool.Schema()
		info := types.ToolInfo{Name: tool.Name(), Description: tool.Description()}
		for _, name := range schema.PropertyNames() {
			p := schema.Properties[name]
			info.Parameters = append(info.Parameters, types.ParameterInfo{
				Name:        name,
				Type:        p.Type,
				Required:    schema.IsRequired(name),
				Description: p.Description,
				Enum:        p.Enum,
			})
		}
		infos = append(infos, info)
	}
	return infos
}

// Describe renders tool descriptions for the LLM prompt.
func Describe(list []Tool) string {
	if len(list) == 0 {
		return "No tools available."
	}

	var sb strings.Builder
	for _, info := range Info(list) {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", info.Name, info.Description))
		if len(info.Parameters) == 0 {
			continue
		}
		sb.WriteString("  Parameters:\n")
		for _, p := range info.Parameters {
			req := "optional"
			if p.Required {
				req = "required"
			}
			line := fmt.Sprintf("    - %s (%s, %s)", p.Name, p.Type, req)
			if p.Description != "" {
				line += ": " + p.Description
			}
			if len(p.Enum) > 0 {
				line += fmt.Sprintf(" [one of: %s]", strings.Join(p.Enum, ", "))
			}
			sb.WriteString(line + "\n")
		}
	}
	return sb.String()
}

// Lookup finds a tool by name in a slice.
func Lookup(list []Tool, name string) (Tool, bool) {
	for _, t := range list {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}
