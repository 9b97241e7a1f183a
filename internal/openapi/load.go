package openapi

import (
	"context"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/goccy/go-json"
	"sigs.k8s.io/yaml"

	"github.com/unkn0wn-root/restbench/internal/errdef"
)

type versionProbe struct {
	OpenAPI string `json:"openapi"`
	Swagger string `json:"swagger"`
}

// Detect reports whether data is an OpenAPI or Swagger document in either
// JSON or YAML form.
func Detect(data []byte) bool {
	var probe versionProbe
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return false
	}
	return strings.TrimSpace(probe.OpenAPI) != "" || strings.TrimSpace(probe.Swagger) != ""
}

// loadDocument parses an OpenAPI 3 document directly and converts Swagger 2
// documents to OpenAPI 3 first. Validation problems are returned as
// warnings; only unparsable input is an error.
func loadDocument(ctx context.Context, data []byte, opts ImportOptions) (*openapi3.T, []string, error) {
	var probe versionProbe
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, nil, errdef.Wrap(errdef.CodeParse, err, "decode openapi document")
	}

	var (
		doc *openapi3.T
		err error
	)
	switch {
	case strings.TrimSpace(probe.Swagger) != "":
		doc, err = convertSwagger(data)
	case strings.TrimSpace(probe.OpenAPI) != "":
		loader := openapi3.NewLoader()
		loader.Context = ctx
		loader.IsExternalRefsAllowed = opts.ResolveExternalRefs
		doc, err = loader.LoadFromData(data)
		if err != nil {
			err = errdef.Wrap(errdef.CodeParse, err, "load openapi document")
		}
	default:
		return nil, nil, errdef.New(errdef.CodeParse, "document has neither an openapi nor a swagger version")
	}
	if err != nil {
		return nil, nil, err
	}

	var warnings []string
	if doc.Info == nil {
		warnings = append(warnings, "document has no info block")
	} else if verr := doc.Validate(ctx); verr != nil {
		warnings = append(warnings, "document does not validate: "+verr.Error())
	}
	return doc, warnings, nil
}

func convertSwagger(data []byte) (*openapi3.T, error) {
	raw, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeParse, err, "decode swagger document")
	}
	var v2 openapi2.T
	if err := json.Unmarshal(raw, &v2); err != nil {
		return nil, errdef.Wrap(errdef.CodeParse, err, "decode swagger document")
	}
	doc, err := openapi2conv.ToV3(&v2)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeParse, err, "convert swagger document")
	}
	return doc, nil
}
