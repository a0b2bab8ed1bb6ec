package swaggerkit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T) map[string]any {
	t.Helper()
	rec := httptest.NewRecorder()
	serveDocJSON()(rec, httptest.NewRequest(http.MethodGet, "/api/docs/doc.json", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var spec map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &spec))
	return spec
}

func TestServeDocJSON_DecoratesSpec(t *testing.T) {
	spec := serve(t)

	assert.Equal(t, "3.0.3", spec["openapi"])
	servers := spec["servers"].([]any)
	assert.Equal(t, "/api/v1", servers[0].(map[string]any)["url"])

	schemas := spec["components"].(map[string]any)["schemas"].(map[string]any)
	assert.Contains(t, schemas, "ErrorResponse")
	assert.Contains(t, schemas, "Summary")

	agg := spec["paths"].(map[string]any)["/activity/aggregate"].(map[string]any)["post"].(map[string]any)
	resps := agg["responses"].(map[string]any)
	assert.Contains(t, resps, "409")
	assert.Contains(t, resps, "500")
	assert.Contains(t, resps, "400")
}

func TestServeDocJSON_TitleSuffixAndMutators(t *testing.T) {
	t.Setenv("CORE_API_DOCS_TITLE_SUFFIX", "(staging)")
	old := mutators
	t.Cleanup(func() { mutators = old })
	Register(func(s map[string]any) { s["x-engine"] = "presence" })

	spec := serve(t)
	assert.Equal(t, "AgentPulse API (staging)", spec["info"].(map[string]any)["title"])
	assert.Equal(t, "presence", spec["x-engine"])
}

func TestServeDocJSON_BadDocIs500(t *testing.T) {
	old := docReader
	t.Cleanup(func() { docReader = old })
	docReader = func() string { return "{" }

	rec := httptest.NewRecorder()
	serveDocJSON()(rec, httptest.NewRequest(http.MethodGet, "/api/docs/doc.json", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
