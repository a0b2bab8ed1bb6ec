package httpkit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	perr "agentpulse/internal/platform/errors"
	phttp "agentpulse/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoIn struct {
	Agent string `json:"agent" validate:"required"`
}

func serve(t *testing.T, mount func(Router), method, path, body string) (int, phttp.Envelope) {
	t.Helper()
	r := phttp.AdaptChi(chi.NewRouter())
	MountAPIV1(r, nil, mount)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.Mux().ServeHTTP(rec, req)

	var env phttp.Envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec.Code, env
}

func TestPostJSON_BindsAndEnvelopes(t *testing.T) {
	t.Parallel()

	mount := func(api Router) {
		PostJSON(api, "/echo", func(_ *http.Request, in echoIn) (any, error) {
			return map[string]string{"agent": in.Agent}, nil
		})
	}
	code, env := serve(t, mount, http.MethodPost, "/api/v1/echo", `{"agent":"a1"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"agent": "a1"}, env.Data)

	code, env = serve(t, mount, http.MethodPost, "/api/v1/echo", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.NotEmpty(t, env.Error)
}

func TestPostJSON_HandlerErrorAndResponsePassthrough(t *testing.T) {
	t.Parallel()

	mount := func(api Router) {
		PostJSON(api, "/busy", func(*http.Request, echoIn) (any, error) {
			return nil, perr.New(perr.ErrorCodeConflict, "run in flight")
		})
		PostJSON(api, "/made", func(_ *http.Request, in echoIn) (any, error) {
			return phttp.Created(in.Agent), nil
		})
	}
	code, env := serve(t, mount, http.MethodPost, "/api/v1/busy", `{"agent":"a1"}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, perr.ErrorCodeConflict, env.Code)

	code, env = serve(t, mount, http.MethodPost, "/api/v1/made", `{"agent":"a1"}`)
	assert.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "a1", env.Data)
}

func TestGet_EnvelopesResult(t *testing.T) {
	t.Parallel()

	mount := func(api Router) {
		Get(api, "/ping", func(*http.Request) (any, error) { return "pong", nil })
	}
	code, env := serve(t, mount, http.MethodGet, "/api/v1/ping", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "pong", env.Data)

	code, _ = serve(t, mount, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestMountAPIV1_AppliesMiddlewareToScopeOnly(t *testing.T) {
	t.Parallel()

	r := phttp.AdaptChi(chi.NewRouter())
	tag := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("X-Scope", "v1")
			next.ServeHTTP(w, req)
		})
	}
	MountAPIV1(r, []func(http.Handler) http.Handler{tag}, func(api Router) {
		Get(api, "/x", func(*http.Request) (any, error) { return nil, nil })
	})
	Get(r, "/outside", func(*http.Request) (any, error) { return nil, nil })

	rec := httptest.NewRecorder()
	r.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/x", nil))
	assert.Equal(t, "v1", rec.Header().Get("X-Scope"))

	rec = httptest.NewRecorder()
	r.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/outside", nil))
	assert.Empty(t, rec.Header().Get("X-Scope"))
}
