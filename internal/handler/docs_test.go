package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocs(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /docs", ServeDocs("Transfers <API>", "/docs/openapi.yaml"))
	mux.HandleFunc("GET /docs/openapi.yaml", ServeSpec([]byte("openapi: 3.0.3\n")))

	rec := serve(mux, httptest.NewRequest(http.MethodGet, "/docs", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<title>Transfers &lt;API&gt;</title>")
	assert.Contains(t, rec.Body.String(), `url: "/docs/openapi.yaml"`)

	rec = serve(mux, httptest.NewRequest(http.MethodGet, "/docs/openapi.yaml", nil))
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	assert.Equal(t, "openapi: 3.0.3\n", rec.Body.String())
}
