package workflow

import "strings"

// ResolvePath resolves a dotted path against a nested context map.
// "input.market" against {"input": {"market": "AI"}} yields "AI". Any
// missing or non-map hop resolves to nil; resolution never fails.
func ResolvePath(context map[string]interface{}, path string) interface{} {
	if path == "" {
		return nil
	}

	var current interface{} = context
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current, ok = m[part]
		if !ok {
			return nil
		}
	}
	return current
}

// resolveInputs builds a capability payload from a step's input mapping.
// Every mapped parameter is present in the payload; unresolvable paths
// map to nil.
func resolveInputs(mapping map[string]string, context map[string]interface{}) map[string]interface{} {
	payload := make(map[string]interface{}, len(mapping))
	for param, path := range mapping {
		payload[param] = ResolvePath(context, path)
	}
	return payload
}
