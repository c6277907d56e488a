/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package valuetype

// DeepCopy copies the containers produced by the codecs so callers can
// mutate the result without touching the original. Other values are
// returned as-is.
func DeepCopy(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, elem := range v {
			out[k] = DeepCopy(elem)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = DeepCopy(elem)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(v))
		for k, elem := range v {
			out[k] = elem
		}
		return out
	case []string:
		return append([]string(nil), v...)
	case []byte:
		return append([]byte(nil), v...)
	}
	return value
}

// Trim recursively removes nil values, empty strings and empty containers.
// Lists are compacted so their indexes stay contiguous.
func Trim(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, elem := range v {
			elem = Trim(elem)
			if isBlank(elem) {
				continue
			}
			out[k] = elem
		}
		return out
	case []any:
		out := make([]any, 0, len(v))
		for _, elem := range v {
			elem = Trim(elem)
			if isBlank(elem) {
				continue
			}
			out = append(out, elem)
		}
		return out
	}
	return value
}

func isBlank(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case map[string]any:
		return len(v) == 0
	case []any:
		return len(v) == 0
	case map[string]string:
		return len(v) == 0
	case []string:
		return len(v) == 0
	}
	return false
}

// IsContainer reports whether value is a map or list that path operations
// can walk into.
func IsContainer(value any) bool {
	switch value.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}
