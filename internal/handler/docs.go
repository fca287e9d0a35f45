package handler

import (
	"fmt"
	"html"
	"net/http"
	"strconv"

	"github.com/josh-kwaku/transfer-saga/internal/logging"
)

func ServeSpec(spec []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		if _, err := w.Write(spec); err != nil {
			logging.FromContext(r.Context()).Warn("failed to write api spec", "error", err)
		}
	}
}

// ServeDocs renders Swagger UI for the spec served at specURL.
func ServeDocs(title, specURL string) http.HandlerFunc {
	page := fmt.Sprintf(swaggerHTML, html.EscapeString(title), strconv.Quote(specURL))
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if _, err := w.Write([]byte(page)); err != nil {
			logging.FromContext(r.Context()).Warn("failed to write docs page", "error", err)
		}
	}
}

const swaggerHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>%s</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: %s,
      dom_id: "#swagger-ui",
      presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
      layout: "BaseLayout"
    });
  </script>
</body>
</html>`
