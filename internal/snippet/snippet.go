package snippet

import (
	"fmt"
	"strings"

	"github.com/unkn0wn-root/restbench/internal/collection"
	"github.com/unkn0wn-root/restbench/internal/config"
	"github.com/unkn0wn-root/restbench/internal/curl"
)

type Language string

const (
	LangCurl          Language = "curl"
	LangJavaScript    Language = "javascript"
	LangJavaScriptXHR Language = "javascript-xhr"
	LangAxios         Language = "axios"
	LangNode          Language = "node"
)

func Languages() []Language {
	return []Language{LangCurl, LangJavaScript, LangJavaScriptXHR, LangAxios, LangNode}
}

const errorPrefix = "// Error generating snippet: "

type renderer func(cmd curl.Command) (string, error)

var renderers = map[Language]renderer{
	LangJavaScript:    renderFetch,
	LangJavaScriptXHR: renderXHR,
	LangAxios:         renderAxios,
	LangNode:          renderNode,
}

// Generate renders req as code in lang. opts only affects the curl output;
// nil means the default curl style. Failures are returned inline as a
// comment so the result can always be shown or copied.
func Generate(req *collection.Request, lang string, opts *config.CurlOptions) string {
	if req == nil {
		return errorPrefix + "no request"
	}
	l := Language(strings.ToLower(strings.TrimSpace(lang)))
	if l == LangCurl {
		style := config.DefaultCurlOptions()
		if opts != nil {
			style = *opts
		}
		return renderCurl(req, newCurlStyle(style))
	}

	render, ok := renderers[l]
	if !ok {
		return errorPrefix + fmt.Sprintf("unsupported language %q", lang)
	}
	cmds, err := curl.ParseCommands(renderCurl(req, canonicalStyle()))
	if err != nil {
		return errorPrefix + err.Error()
	}
	if len(cmds) == 0 {
		return errorPrefix + "curl command missing URL"
	}
	out, err := render(cmds[0])
	if err != nil {
		return errorPrefix + err.Error()
	}
	return out
}
