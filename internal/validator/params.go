package validator

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/ashutoshrp06/taskmate/internal/tools"
)

// ParamResult is the outcome of validating tool parameters.
type ParamResult struct {
	Valid bool
	Error string
}

func invalid(format string, args ...any) ParamResult {
	return ParamResult{Error: fmt.Sprintf(format, args...)}
}

// Validate checks params against the tool's schema.
func Validate(params map[string]any, tool tools.Tool) ParamResult {
	return ValidateParams(params, tool.Schema())
}

// ValidateParams checks params against schema. Required keys are checked
// in schema order, then supplied keys in sorted order, so the first error
// reported is deterministic. Keys the schema does not declare are ignored.
func ValidateParams(params map[string]any, schema tools.Schema) ParamResult {
	if params == nil {
		return invalid("parameters must be an object")
	}

	for _, name := range schema.Required {
		if v, ok := params[name]; !ok || v == nil {
			return invalid("missing required parameter: %s", name)
		}
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, name := range keys {
		prop, declared := schema.Properties[name]
		if !declared {
			continue
		}
		value := params[name]
		if value == nil {
			continue
		}
		if prop.Type != "" && !matchesType(value, prop.Type) {
			return invalid("parameter %s must be %s, got %s", name, prop.Type, typeName(value))
		}
		if len(prop.Enum) > 0 && !slices.Contains(prop.Enum, stringForm(value)) {
			return invalid("parameter %s must be one of: %s", name, strings.Join(prop.Enum, ", "))
		}
		if res := validateItems(name, value, prop.Items); !res.Valid {
			return res
		}
	}

	return ParamResult{Valid: true}
}

// validateItems checks each element of an array value against items.
// Nested arrays are not descended into.
func validateItems(name string, value any, items *tools.Property) ParamResult {
	elems, ok := value.([]any)
	if !ok || items == nil {
		return ParamResult{Valid: true}
	}
	for i, elem := range elems {
		if elem == nil {
			return invalid("parameter %s[%d] must not be null", name, i)
		}
		if items.Type != "" && !matchesType(elem, items.Type) {
			return invalid("parameter %s[%d] must be %s, got %s", name, i, items.Type, typeName(elem))
		}
		if len(items.Enum) > 0 && !slices.Contains(items.Enum, stringForm(elem)) {
			return invalid("parameter %s[%d] must be one of: %s", name, i, strings.Join(items.Enum, ", "))
		}
	}
	return ParamResult{Valid: true}
}

func matchesType(v any, want string) bool {
	switch want {
	case tools.TypeString:
		_, ok := v.(string)
		return ok
	case tools.TypeNumber:
		_, ok := asNumber(v)
		return ok
	case tools.TypeInteger:
		f, ok := asNumber(v)
		return ok && f == math.Trunc(f)
	case tools.TypeBoolean:
		_, ok := v.(bool)
		return ok
	case tools.TypeArray:
		_, ok := v.([]any)
		return ok
	case tools.TypeObject:
		_, ok := v.(map[string]any)
		return ok
	default:
		return true
	}
}

// asNumber accepts Go numeric values and strings that parse cleanly as
// a number.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func typeName(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	case float64, float32, int, int64, int32:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func stringForm(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
