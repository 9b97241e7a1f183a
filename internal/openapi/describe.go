package openapi

import (
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/goccy/go-json"
)

// describe renders the operation's documentation as Markdown: summary,
// free text, a parameter table, the request body schema and one schema
// dump per response status.
func (b *builder) describe(op operation) string {
	var sb strings.Builder
	if s := strings.TrimSpace(op.Summary); s != "" {
		sb.WriteString("# " + s + "\n\n")
	}
	if d := strings.TrimSpace(op.Description); d != "" {
		sb.WriteString(d + "\n\n")
	}

	if len(op.Parameters) > 0 {
		sb.WriteString("## Parameters\n\n")
		sb.WriteString("| Name | In | Required | Type | Description |\n")
		sb.WriteString("| --- | --- | --- | --- | --- |\n")
		for _, p := range op.Parameters {
			required := "no"
			if p.Required {
				required = "yes"
			}
			sb.WriteString("| " + cell(p.Name) + " | " + p.In + " | " + required + " | " +
				cell(schemaTypeName(p.Schema)) + " | " + cell(p.Description) + " |\n")
		}
		sb.WriteString("\n")
	}

	if rb := op.RequestBody; rb != nil && len(rb.Content) > 0 {
		sb.WriteString("## Request Body\n\n")
		if d := strings.TrimSpace(rb.Description); d != "" {
			sb.WriteString(d + "\n\n")
		}
		for _, m := range sortedMedia(rb.Content) {
			sb.WriteString("`" + m.ContentType + "`\n\n")
			writeSchema(&sb, m.Value.Schema)
		}
	}

	if len(op.Responses) > 0 {
		sb.WriteString("## Responses\n\n")
		for _, resp := range op.Responses {
			sb.WriteString("### " + resp.Code)
			if d := strings.TrimSpace(resp.Description); d != "" {
				sb.WriteString(" - " + d)
			}
			sb.WriteString("\n\n")
			for _, m := range resp.Media {
				sb.WriteString("`" + m.ContentType + "`\n\n")
				writeSchema(&sb, m.Value.Schema)
			}
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func writeSchema(sb *strings.Builder, ref *openapi3.SchemaRef) {
	if ref == nil || ref.Value == nil {
		return
	}
	data, err := json.MarshalIndent(ref.Value, "", "  ")
	if err != nil {
		return
	}
	sb.WriteString("```json\n")
	sb.Write(data)
	sb.WriteString("\n```\n\n")
}

func schemaTypeName(ref *openapi3.SchemaRef) string {
	if ref == nil || ref.Value == nil {
		return ""
	}
	kind := schemaKindOf(ref.Value)
	if kind == "array" && ref.Value.Items != nil && ref.Value.Items.Value != nil {
		if item := schemaKindOf(ref.Value.Items.Value); item != "" {
			return item + "[]"
		}
	}
	if f := ref.Value.Format; f != "" && kind != "" {
		return kind + " (" + f + ")"
	}
	return kind
}

func cell(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
	return strings.ReplaceAll(s, "|", "\\|")
}
