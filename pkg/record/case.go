package record

import "strings"

// SnakeToCamel converts a user-facing snake_case key to the wire-facing
// lowerCamelCase convention of the management API.
func SnakeToCamel(key string) string {
	parts := strings.Split(key, "_")
	if len(parts) == 1 {
		return key
	}
	var b strings.Builder
	b.WriteString(parts[0])
	for _, part := range parts[1:] {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}

// CamelToSnake converts a wire-facing lowerCamelCase key back to the
// user-facing snake_case convention. Runs of upper-case letters (acronyms)
// stay in one segment.
func CamelToSnake(key string) string {
	var b strings.Builder
	for i, r := range key {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && !isUpperAt(key, i-1) {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isUpperAt(s string, i int) bool {
	return s[i] >= 'A' && s[i] <= 'Z'
}

// KeysToCamel returns a copy of the record with every key converted from
// snake_case to lowerCamelCase, recursing into nested objects and arrays.
func (r Record) KeysToCamel() Record {
	return convertKeys(r, SnakeToCamel)
}

// KeysToSnake returns a copy of the record with every key converted from
// lowerCamelCase to snake_case, recursing into nested objects and arrays.
func (r Record) KeysToSnake() Record {
	return convertKeys(r, CamelToSnake)
}

func convertKeys(r Record, convert func(string) string) Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[convert(k)] = convertValue(v, convert)
	}
	return out
}

func convertValue(v any, convert func(string) string) any {
	switch val := v.(type) {
	case map[string]any:
		return map[string]any(convertKeys(Record(val), convert))
	case Record:
		return map[string]any(convertKeys(val, convert))
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = convertValue(inner, convert)
		}
		return out
	default:
		return v
	}
}
