package openapi

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// operation is one path × method pair with path-level data already merged in.
type operation struct {
	ID          string
	Method      string
	Path        string
	Summary     string
	Description string
	Tags        []string
	Deprecated  bool
	Server      string
	Parameters  []*openapi3.Parameter
	RequestBody *openapi3.RequestBody
	Responses   []response
	Security    openapi3.SecurityRequirements
}

type response struct {
	Code        string
	Description string
	Media       []media
}

type media struct {
	ContentType string
	Value       *openapi3.MediaType
}

func collectOperations(doc *openapi3.T) []operation {
	if doc.Paths == nil {
		return nil
	}

	pathMap := doc.Paths.Map()
	paths := make([]string, 0, len(pathMap))
	for path := range pathMap {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var ops []operation
	for _, path := range paths {
		item := doc.Paths.Value(path)
		if item == nil {
			continue
		}
		methodOrder := []struct {
			method string
			op     *openapi3.Operation
		}{
			{http.MethodGet, item.Get},
			{http.MethodPut, item.Put},
			{http.MethodPost, item.Post},
			{http.MethodDelete, item.Delete},
			{http.MethodOptions, item.Options},
			{http.MethodHead, item.Head},
			{http.MethodPatch, item.Patch},
			{http.MethodTrace, item.Trace},
		}
		for _, entry := range methodOrder {
			if entry.op == nil {
				continue
			}
			ops = append(ops, normalizeOperation(doc, path, entry.method, entry.op, item))
		}
	}
	return ops
}

func normalizeOperation(
	doc *openapi3.T,
	path, method string,
	raw *openapi3.Operation,
	item *openapi3.PathItem,
) operation {
	op := operation{
		ID:          raw.OperationID,
		Method:      method,
		Path:        path,
		Summary:     raw.Summary,
		Description: raw.Description,
		Tags:        append([]string(nil), raw.Tags...),
		Deprecated:  raw.Deprecated,
		Parameters:  mergeParameters(item.Parameters, raw.Parameters),
		Responses:   convertResponses(raw.Responses),
	}
	if servers := selectServers(doc.Servers, item.Servers, raw.Servers); len(servers) > 0 {
		op.Server = resolveServerURL(servers[0])
	}
	if raw.RequestBody != nil {
		op.RequestBody = raw.RequestBody.Value
	}
	switch {
	case raw.Security != nil:
		op.Security = *raw.Security
	default:
		op.Security = doc.Security
	}
	return op
}

func selectServers(
	docServers openapi3.Servers,
	pathServers openapi3.Servers,
	opServers *openapi3.Servers,
) openapi3.Servers {
	if opServers != nil && len(*opServers) > 0 {
		return *opServers
	}
	if len(pathServers) > 0 {
		return pathServers
	}
	return docServers
}

// resolveServerURL substitutes server variables with their default, or the
// first enum value when no default is declared.
func resolveServerURL(server *openapi3.Server) string {
	if server == nil {
		return ""
	}
	resolved := server.URL
	for name, variable := range server.Variables {
		if variable == nil {
			continue
		}
		replacement := variable.Default
		if replacement == "" && len(variable.Enum) > 0 {
			replacement = variable.Enum[0]
		}
		resolved = strings.ReplaceAll(resolved, fmt.Sprintf("{%s}", name), replacement)
	}
	return resolved
}

// mergeParameters lets operation parameters override path-level ones with
// the same location and name.
func mergeParameters(base, own openapi3.Parameters) []*openapi3.Parameter {
	combined := make(map[string]*openapi3.Parameter)
	var order []string
	add := func(ref *openapi3.ParameterRef) {
		if ref == nil || ref.Value == nil {
			return
		}
		key := ref.Value.In + ":" + ref.Value.Name
		if _, seen := combined[key]; !seen {
			order = append(order, key)
		}
		combined[key] = ref.Value
	}
	for _, ref := range base {
		add(ref)
	}
	for _, ref := range own {
		add(ref)
	}
	if len(order) == 0 {
		return nil
	}
	params := make([]*openapi3.Parameter, 0, len(order))
	for _, key := range order {
		params = append(params, combined[key])
	}
	return params
}

func convertResponses(responses *openapi3.Responses) []response {
	if responses == nil || responses.Len() == 0 {
		return nil
	}
	codes := make([]string, 0, responses.Len())
	for code := range responses.Map() {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	out := make([]response, 0, len(codes))
	for _, code := range codes {
		ref := responses.Value(code)
		if ref == nil || ref.Value == nil {
			continue
		}
		resp := response{Code: code}
		if ref.Value.Description != nil {
			resp.Description = *ref.Value.Description
		}
		resp.Media = sortedMedia(ref.Value.Content)
		out = append(out, resp)
	}
	return out
}

func sortedMedia(content openapi3.Content) []media {
	if len(content) == 0 {
		return nil
	}
	types := make([]string, 0, len(content))
	for ct := range content {
		types = append(types, ct)
	}
	sort.Strings(types)
	out := make([]media, 0, len(types))
	for _, ct := range types {
		if mt := content[ct]; mt != nil {
			out = append(out, media{ContentType: ct, Value: mt})
		}
	}
	return out
}
