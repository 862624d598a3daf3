package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// GenerateSchema derives a strict JSON schema from a struct: every field is
// required and no extra properties are allowed. A `description` tag is
// copied onto the property.
func GenerateSchema(v any) (map[string]any, error) {
	if v == nil {
		return nil, errors.New("llm: schema value cannot be nil")
	}
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("llm: schema must be a struct, got %s", t.Kind())
	}
	return schemaFor(t), nil
}

// ParseStructured decodes a model reply into target. Markdown code fences
// around the JSON are tolerated.
func ParseStructured(reply string, target any) error {
	if target == nil || reflect.ValueOf(target).Kind() != reflect.Ptr {
		return errors.New("llm: target must be a pointer")
	}
	body := stripFence(reply)
	if body == "" {
		return errors.New("llm: empty structured reply")
	}
	if err := json.Unmarshal([]byte(body), target); err != nil {
		return fmt.Errorf("llm: decode structured reply: %w", err)
	}
	return nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:] // language tag line
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

func schemaFor(t reflect.Type) map[string]any {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Bool:
		return map[string]any{"type": "boolean"}
	case reflect.String:
		return map[string]any{"type": "string"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer"}
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}
	case reflect.Slice, reflect.Array:
		return map[string]any{"type": "array", "items": schemaFor(t.Elem())}
	case reflect.Map:
		return map[string]any{"type": "object", "additionalProperties": schemaFor(t.Elem())}
	case reflect.Struct:
		props := make(map[string]any)
		required := make([]string, 0, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			name, ok := jsonName(field)
			if !ok {
				continue
			}
			prop := schemaFor(field.Type)
			if desc := field.Tag.Get("description"); desc != "" {
				prop["description"] = desc
			}
			if enum := field.Tag.Get("enum"); enum != "" {
				prop["enum"] = strings.Split(enum, ",")
			}
			props[name] = prop
			required = append(required, name)
		}
		return map[string]any{
			"type":                 "object",
			"properties":           props,
			"required":             required,
			"additionalProperties": false,
		}
	default:
		return map[string]any{"type": "string"}
	}
}

func jsonName(field reflect.StructField) (string, bool) {
	if !field.IsExported() {
		return "", false
	}
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name, true
	}
	return field.Name, true
}
