package schema

import "fmt"

// ValidateInstance checks a decoded JSON value against the strict schema
// subset this package emits (object/array/string/integer/number/boolean,
// "enum", nullable via a ["type","null"] union, "required"). It is the
// generators' second validation layer: ValidateOpenAIJSONSchema checks the
// schema itself is well-formed; ValidateInstance checks the model's output
// actually conforms to it.
func ValidateInstance(schema map[string]any, value any, path string) error {
	if path == "" {
		path = "$"
	}
	if schema == nil {
		return nil
	}

	if enumAny, ok := schema["enum"]; ok {
		return checkEnum(enumAny, value, path)
	}

	switch t := schema["type"].(type) {
	case string:
		return checkType(t, schema, value, path)
	case []any:
		var lastErr error
		for _, tv := range t {
			ts, _ := tv.(string)
			if err := checkType(ts, schema, value, path); err == nil {
				return nil
			} else {
				lastErr = err
			}
		}
		if lastErr != nil {
			return fmt.Errorf("%s: value matches none of %v: %w", path, t, lastErr)
		}
	}
	return nil
}

func checkEnum(enumAny any, value any, path string) error {
	options, _ := enumAny.([]any)
	for _, o := range options {
		if fmt.Sprint(o) == fmt.Sprint(value) {
			return nil
		}
	}
	return fmt.Errorf("%s: %v is not one of %v", path, value, options)
}

func checkType(t string, schema map[string]any, value any, path string) error {
	switch t {
	case "null":
		if value != nil {
			return fmt.Errorf("%s: expected null, got %T", path, value)
		}
		return nil
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("%s: expected string, got %T", path, value)
		}
		return nil
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("%s: expected boolean, got %T", path, value)
		}
		return nil
	case "integer", "number":
		if _, ok := value.(float64); !ok {
			return fmt.Errorf("%s: expected number, got %T", path, value)
		}
		return nil
	case "array":
		arr, ok := value.([]any)
		if !ok {
			return fmt.Errorf("%s: expected array, got %T", path, value)
		}
		items, _ := schema["items"].(map[string]any)
		for i, el := range arr {
			if err := ValidateInstance(items, el, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil
	case "object":
		obj, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("%s: expected object, got %T", path, value)
		}
		props, _ := schema["properties"].(map[string]any)
		reqAny, _ := schema["required"].([]any)
		for _, r := range reqAny {
			key := fmt.Sprint(r)
			if _, present := obj[key]; !present {
				return fmt.Errorf("%s: missing required property %q", path, key)
			}
		}
		for k, v := range obj {
			propSchema, _ := props[k].(map[string]any)
			if propSchema == nil {
				continue
			}
			if err := ValidateInstance(propSchema, v, path+"."+k); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}
