package spec

import (
	"fmt"
	"strconv"
	"strings"
)

// Getters over the untyped tree produced by the YAML decoder. Unlike the
// unmarshal helpers they are modeled on, they never remove keys: the raw tree
// is shared by every $ref that points into it.

func getString(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func getBool(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func getMap(m map[string]any, key string) map[string]any {
	obj, _ := m[key].(map[string]any)
	return obj
}

func getSlice(m map[string]any, key string) []any {
	arr, _ := m[key].([]any)
	return arr
}

func getStringSlice(m map[string]any, key string) []string {
	arr, ok := m[key].([]any)
	if !ok {
		return nil
	}
	result := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			result = append(result, s)
		}
	}
	return result
}

// getFloat returns nil when the key is absent or not numeric.
func getFloat(m map[string]any, key string) *float64 {
	var f float64
	switch v := m[key].(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint64:
		f = float64(v)
	default:
		return nil
	}
	return &f
}

func getInt(m map[string]any, key string) *int {
	f := getFloat(m, key)
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}

// resolvePointer walks a local JSON pointer ("#/definitions/app") through root.
func resolvePointer(root map[string]any, ref string) (any, error) {
	ref = strings.TrimPrefix(ref, "#")
	if ref == "" || ref == "/" {
		return root, nil
	}

	parts := strings.Split(strings.TrimPrefix(ref, "/"), "/")
	current := any(root)
	for i, part := range parts {
		part = unescapeJSONPointer(part)

		switch v := current.(type) {
		case map[string]any:
			next, ok := v[part]
			if !ok {
				return nil, fmt.Errorf("reference not found: #/%s (missing key: %s)", strings.Join(parts[:i+1], "/"), part)
			}
			current = next
		case []any:
			index, err := strconv.Atoi(part)
			if err != nil || index < 0 || index >= len(v) {
				return nil, fmt.Errorf("invalid array index %q in reference: #/%s", part, strings.Join(parts[:i+1], "/"))
			}
			current = v[index]
		default:
			return nil, fmt.Errorf("cannot traverse into type %T at #/%s", v, strings.Join(parts[:i], "/"))
		}
	}
	return current, nil
}

// unescapeJSONPointer applies RFC 6901: ~1 is / and ~0 is ~.
func unescapeJSONPointer(token string) string {
	token = strings.ReplaceAll(token, "~1", "/")
	return strings.ReplaceAll(token, "~0", "~")
}
