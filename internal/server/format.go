package server

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"

	"jsonpdb/internal/shared"
)

// renderSuccess joins the values as JSONP arguments. Without a callback a
// single value is returned as is and several values become an array.
func renderSuccess(callback string, values []string) string {
	body := strings.Join(values, ", ")
	switch {
	case callback != "":
		return callback + "(" + body + ")"
	case len(values) > 1:
		return "[" + body + "]"
	default:
		return body
	}
}

var errorPage = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="UTF-8">
    <title>{{.Title}}</title>
  </head>
  <body>
    <pre>
{{.Message}}
    </pre>
  </body>
</html>
`))

// renderError returns the body and content type for a failed request.
// Client errors hand an Error to the callback; server errors emit an inert
// statement and rely on the HTTP status.
func renderError(callback string, e httpError) (string, string) {
	msg := jsString(e.FullMessage())
	if callback != "" {
		if e.Status() >= http.StatusInternalServerError {
			return msg + "; /* " + e.StatusLine() + " */ void 0;", shared.ContentTypeJavaScript
		}
		return callback + "(new Error(" + msg + "));", shared.ContentTypeJavaScript
	}

	var buf bytes.Buffer
	if err := errorPage.Execute(&buf, struct{ Title, Message string }{e.StatusLine(), e.FullMessage()}); err != nil {
		return template.HTMLEscapeString(e.FullMessage()), shared.ContentTypeHTML
	}
	return buf.String(), shared.ContentTypeHTML
}
