package discovery

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// kindOf classifies a decoded JSON value. Scalars other than strings
// report -1 so they never match a schema kind directly.
func kindOf(v any) FieldKind {
	switch v.(type) {
	case []any:
		return KindList
	case map[string]any:
		return KindMap
	case string:
		return KindText
	default:
		return -1
	}
}

// isFilled reports whether a field value counts toward progress: a
// non-empty list, non-empty mapping, non-blank string, any number, or true.
func isFilled(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(x) != ""
	case []any:
		return len(x) > 0
	case []string:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	case bool:
		return x
	default:
		// numbers count as filled, zero included
		return true
	}
}

// asList coerces an incoming value for a list field. Scalars become a
// single-element list; mappings are rejected.
func asList(v any) ([]any, bool) {
	switch x := v.(type) {
	case []any:
		out := make([]any, 0, len(x))
		for _, item := range x {
			if !isFilled(item) {
				continue
			}
			out = append(out, deepCopy(item))
		}
		return out, true
	case []string:
		out := make([]any, 0, len(x))
		for _, s := range x {
			if strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		return out, true
	case string:
		if strings.TrimSpace(x) == "" {
			return nil, true
		}
		return []any{x}, true
	case float64, float32, int, int64, int32, bool, json.Number:
		return []any{x}, true
	default:
		return nil, false
	}
}

// asText coerces an incoming value for a text field.
func asText(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case json.Number:
		return x.String(), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return "", false
	}
}

func deepCopy(v any) any {
	switch x := v.(type) {
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = deepCopy(item)
		}
		return out
	case map[string]any:
		return copyMap(x)
	default:
		return x
	}
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopy(v)
	}
	return out
}

// StringOrList decodes JSON that may be a single string or a list of strings.
type StringOrList []string

// UnmarshalJSON accepts both shapes.
func (s *StringOrList) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*s = StringOrList(arr)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if str == "" {
			*s = StringOrList{}
		} else {
			*s = StringOrList{str}
		}
		return nil
	}
	return fmt.Errorf("field must be string or array of strings")
}

// Text renders a value for prompts and summaries.
func Text(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []any:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			parts = append(parts, Text(item))
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		raw, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(raw)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}
