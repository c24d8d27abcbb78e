package config

// Safe lookups into raw config maps decoded from JSON or YAML. They never panic
// on missing keys or unexpected types.

// GetNestedMap walks keys and returns the map found at the end of the path.
// An empty path returns cfg itself.
func GetNestedMap(cfg map[string]any, keys []string) (map[string]any, bool) {
	current := cfg
	for _, key := range keys {
		nested, ok := current[key].(map[string]any)
		if !ok {
			return nil, false
		}
		current = nested
	}
	return current, current != nil
}

// GetNestedString extracts a string at the end of keys.
func GetNestedString(cfg map[string]any, keys []string) (string, bool) {
	if len(keys) == 0 {
		return "", false
	}
	parent, ok := GetNestedMap(cfg, keys[:len(keys)-1])
	if !ok {
		return "", false
	}
	s, ok := parent[keys[len(keys)-1]].(string)
	return s, ok
}
