package openapi

import (
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/goccy/go-json"
)

const maxSampleDepth = 8

// sampler synthesizes example values from schemas. Explicit examples win,
// then defaults, then the first enum value, then a placeholder per type.
type sampler struct {
	visiting map[*openapi3.Schema]bool
}

func newSampler() *sampler {
	return &sampler{visiting: make(map[*openapi3.Schema]bool)}
}

func (s *sampler) fromSchema(ref *openapi3.SchemaRef) (any, bool) {
	if ref == nil || ref.Value == nil {
		return nil, false
	}
	return s.sample(ref.Value, 0), true
}

func (s *sampler) sample(schema *openapi3.Schema, depth int) any {
	if v, ok := declaredValue(schema); ok {
		return v
	}
	if depth > maxSampleDepth || s.visiting[schema] {
		return nil
	}
	s.visiting[schema] = true
	defer delete(s.visiting, schema)

	if len(schema.AllOf) > 0 {
		merged := map[string]any{}
		for _, part := range schema.AllOf {
			if part == nil || part.Value == nil {
				continue
			}
			if obj, ok := s.sample(part.Value, depth+1).(map[string]any); ok {
				for k, v := range obj {
					merged[k] = v
				}
			}
		}
		return merged
	}
	for _, alts := range []openapi3.SchemaRefs{schema.OneOf, schema.AnyOf} {
		for _, alt := range alts {
			if alt != nil && alt.Value != nil {
				return s.sample(alt.Value, depth+1)
			}
		}
	}

	switch schemaKindOf(schema) {
	case "object":
		obj := map[string]any{}
		for _, name := range sortedKeys(schema.Properties) {
			prop := schema.Properties[name]
			if prop == nil || prop.Value == nil || prop.Value.ReadOnly {
				continue
			}
			obj[name] = s.sample(prop.Value, depth+1)
		}
		return obj
	case "array":
		if schema.Items == nil || schema.Items.Value == nil {
			return []any{}
		}
		return []any{s.sample(schema.Items.Value, depth+1)}
	case "integer":
		return 0
	case "number":
		return 0.0
	case "boolean":
		return true
	case "string":
		return stringPlaceholder(schema.Format)
	default:
		return nil
	}
}

func declaredValue(schema *openapi3.Schema) (any, bool) {
	switch {
	case schema.Example != nil:
		return schema.Example, true
	case schema.Default != nil:
		return schema.Default, true
	case len(schema.Enum) > 0:
		return schema.Enum[0], true
	}
	return nil, false
}

func schemaKindOf(schema *openapi3.Schema) string {
	if schema.Type != nil {
		if types := schema.Type.Slice(); len(types) > 0 {
			return strings.ToLower(types[0])
		}
	}
	switch {
	case len(schema.Properties) > 0 || schema.AdditionalProperties.Schema != nil:
		return "object"
	case schema.Items != nil:
		return "array"
	}
	return ""
}

func stringPlaceholder(format string) string {
	switch format {
	case "date":
		return "2024-01-01"
	case "date-time":
		return "2024-01-01T00:00:00Z"
	case "email":
		return "user@example.com"
	case "uuid":
		return "00000000-0000-0000-0000-000000000000"
	case "uri", "url":
		return "https://example.com"
	case "binary":
		return ""
	default:
		return "string"
	}
}

// parameterValue returns the seed value for a query or header parameter:
// the parameter's own example, then its schema's example, default or enum.
func parameterValue(p *openapi3.Parameter) (string, bool) {
	if p.Example != nil {
		return stringifyExample(p.Example, false), true
	}
	if v, ok := firstExample(p.Examples); ok {
		return stringifyExample(v, false), true
	}
	if p.Schema != nil && p.Schema.Value != nil {
		if v, ok := declaredValue(p.Schema.Value); ok {
			return stringifyExample(v, false), true
		}
	}
	return "", false
}

// mediaExample returns the explicit example attached to a media type or its
// schema. Synthesized values are not considered.
func mediaExample(mt *openapi3.MediaType) (any, bool) {
	if mt == nil {
		return nil, false
	}
	if mt.Example != nil {
		return mt.Example, true
	}
	if v, ok := firstExample(mt.Examples); ok {
		return v, true
	}
	if mt.Schema != nil && mt.Schema.Value != nil && mt.Schema.Value.Example != nil {
		return mt.Schema.Value.Example, true
	}
	return nil, false
}

// firstExample picks the lexically first named example so imports are
// deterministic.
func firstExample(examples openapi3.Examples) (any, bool) {
	for _, name := range sortedKeys(examples) {
		ref := examples[name]
		if ref != nil && ref.Value != nil && ref.Value.Value != nil {
			return ref.Value.Value, true
		}
	}
	return nil, false
}

func stringifyExample(value any, pretty bool) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64, float32, int, int32, int64, uint, uint64, bool:
		return fmt.Sprint(v)
	}

	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(value, "", "  ")
	} else {
		data, err = json.Marshal(value)
	}
	if err != nil {
		return fmt.Sprint(value)
	}
	return string(data)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
