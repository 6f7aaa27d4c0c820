package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/treestore/internal/metrics"
	"github.com/roach88/treestore/internal/server"
	"github.com/roach88/treestore/internal/store"
	ttestutil "github.com/roach88/treestore/internal/testutil"
	"github.com/roach88/treestore/internal/tree"
)

func newTestServer(t *testing.T) *server.Server {
	t.Helper()
	backend, err := store.Open(filepath.Join(t.TempDir(), "tree.db"))
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	s := tree.New(backend,
		tree.WithClock(ttestutil.NewDeterministicClock()),
		tree.WithIDGenerator(ttestutil.NewSequentialIDs("n").Generate),
	)
	_, err = s.Initialize(t.Context())
	require.NoError(t, err)

	logger := log.New()
	logger.SetOutput(io.Discard)
	return server.New(s, server.Config{}, logger)
}

type response struct {
	Code   int
	Header http.Header
	Body   map[string]any
	Raw    string
}

func do(t *testing.T, srv *server.Server, method, target, body string, header ...string) response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	res := response{Code: rec.Code, Header: rec.Header(), Raw: rec.Body.String()}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(rec.Body.Bytes(), &res.Body)
	}
	return res
}

func nodePaths(t *testing.T, body map[string]any) []string {
	t.Helper()
	raw, ok := body["nodes"].([]any)
	require.True(t, ok, "body has nodes: %v", body)
	paths := []string{}
	for _, n := range raw {
		paths = append(paths, n.(map[string]any)["path"].(string))
	}
	return paths
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestSaveGetRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	res := do(t, srv, http.MethodPut, "/v1/nodes/docs/", `{"title":"Docs"}`)
	require.Equal(t, http.StatusCreated, res.Code, res.Raw)
	assert.Equal(t, "/docs/", res.Body["path"])
	assert.Equal(t, "n-0002", res.Body["id"])

	res = do(t, srv, http.MethodPut, "/v1/nodes/docs/", `{"title":"Documents"}`)
	require.Equal(t, http.StatusOK, res.Code, res.Raw)
	assert.Equal(t, "n-0002", res.Body["id"], "update keeps the id")

	res = do(t, srv, http.MethodGet, "/v1/nodes/docs/", "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, map[string]any{"title": "Documents"}, res.Body["data"])
	assert.NotEmpty(t, res.Header.Get("ETag"))
}

func TestGet_ETagNotModified(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodPut, "/v1/nodes/a/", `{"v":1}`)

	first := do(t, srv, http.MethodGet, "/v1/nodes/a/", "")
	etag := first.Header.Get("ETag")
	require.NotEmpty(t, etag)

	res := do(t, srv, http.MethodGet, "/v1/nodes/a/", "", "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, res.Code)

	do(t, srv, http.MethodPut, "/v1/nodes/a/", `{"v":2}`)
	res = do(t, srv, http.MethodGet, "/v1/nodes/a/", "", "If-None-Match", etag)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.NotEqual(t, etag, res.Header.Get("ETag"))
}

func TestGet_Field(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodPut, "/v1/nodes/u/", `{"owner":{"name":"ann"},"tags":["x","y"]}`)

	res := do(t, srv, http.MethodGet, "/v1/nodes/u/?field=data.owner.name", "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "\"ann\"\n", res.Raw)

	res = do(t, srv, http.MethodGet, "/v1/nodes/u/?field=data.tags", "")
	assert.Equal(t, "[\"x\",\"y\"]\n", res.Raw)

	res = do(t, srv, http.MethodGet, "/v1/nodes/u/?field=data.nope", "")
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestErrorStatuses(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		code   int
		errStr string
	}{
		{"missing node", http.MethodGet, "/v1/nodes/nope/", "", http.StatusNotFound, "NOT_FOUND"},
		{"missing parent", http.MethodPut, "/v1/nodes/a/b/", `{}`, http.StatusConflict, "PARENT_NOT_FOUND"},
		{"root delete", http.MethodDelete, "/v1/nodes/", "", http.StatusForbidden, "ROOT_PROTECTED"},
		{"not an object", http.MethodPut, "/v1/nodes/a/", `[1,2]`, http.StatusBadRequest, "INVALID_PAYLOAD"},
		{"malformed body", http.MethodPut, "/v1/nodes/a/", `{"a":`, http.StatusBadRequest, "INVALID_PAYLOAD"},
		{"bad query", http.MethodGet, "/v1/find/?q=" + "data.x%20%3D", "", http.StatusBadRequest, "PARSE_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := do(t, srv, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.code, res.Code, res.Raw)
			assert.Equal(t, tt.errStr, errorCode(res.Body))
		})
	}
}

func TestParseErrorCarriesPosition(t *testing.T) {
	srv := newTestServer(t)

	res := do(t, srv, http.MethodGet, "/v1/find/?q=data.x%20%3D", "")
	require.Equal(t, http.StatusBadRequest, res.Code)
	e := res.Body["error"].(map[string]any)
	assert.Equal(t, float64(8), e["position"])
}

func TestLsParentsFind(t *testing.T) {
	srv := newTestServer(t)
	for _, p := range []string{"a/", "a/b/", "a/b/c/", "a/d/"} {
		res := do(t, srv, http.MethodPut, "/v1/nodes/"+p, `{"n":"`+p+`"}`)
		require.Less(t, res.Code, 300, res.Raw)
	}
	do(t, srv, http.MethodPut, "/v1/nodes/a/d/", `{"n":"d","size":5}`)

	res := do(t, srv, http.MethodGet, "/v1/ls/a/", "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, []string{"/a/b/", "/a/d/"}, nodePaths(t, res.Body))
	assert.Equal(t, float64(2), res.Body["count"])

	res = do(t, srv, http.MethodGet, "/v1/parents/a/b/c/?top=/a/", "")
	assert.Equal(t, []string{"/a/", "/a/b/", "/a/b/c/"}, nodePaths(t, res.Body))

	res = do(t, srv, http.MethodGet, "/v1/parents/a/b/c/", "")
	assert.Equal(t, []string{"/", "/a/", "/a/b/", "/a/b/c/"}, nodePaths(t, res.Body))

	res = do(t, srv, http.MethodGet, "/v1/find/a/?q=data.size%20%3E%201", "")
	assert.Equal(t, []string{"/a/d/"}, nodePaths(t, res.Body))

	res = do(t, srv, http.MethodGet, "/v1/find/a/b/", "")
	assert.Equal(t, []string{"/a/b/", "/a/b/c/"}, nodePaths(t, res.Body), "empty query matches the whole subtree")
}

func TestDeleteSubtree(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodPut, "/v1/nodes/a/", `{}`)
	do(t, srv, http.MethodPut, "/v1/nodes/a/b/", `{}`)
	do(t, srv, http.MethodPut, "/v1/nodes/ab/", `{}`)

	res := do(t, srv, http.MethodDelete, "/v1/nodes/a/", "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, float64(2), res.Body["deleted"])

	res = do(t, srv, http.MethodGet, "/v1/ls/", "")
	assert.Equal(t, []string{"/ab/"}, nodePaths(t, res.Body))

	res = do(t, srv, http.MethodDelete, "/v1/nodes/a/", "")
	assert.Equal(t, float64(0), res.Body["deleted"])
}

func TestQueryCache(t *testing.T) {
	srv := newTestServer(t)
	hits := testutil.ToFloat64(metrics.QueryCache.WithLabelValues("hit"))
	misses := testutil.ToFloat64(metrics.QueryCache.WithLabelValues("miss"))

	q := "/v1/find/?q=name%20%3D%20%22cache-test%22"
	do(t, srv, http.MethodGet, q, "")
	do(t, srv, http.MethodGet, q, "")

	assert.Equal(t, misses+1, testutil.ToFloat64(metrics.QueryCache.WithLabelValues("miss")))
	assert.Equal(t, hits+1, testutil.ToFloat64(metrics.QueryCache.WithLabelValues("hit")))
}

func TestMetricsAndHealth(t *testing.T) {
	srv := newTestServer(t)

	res := do(t, srv, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "ok", res.Body["status"])

	res = do(t, srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Raw, "treestore_http_requests_total")
	assert.Contains(t, res.Raw, "treestore_backend_operations_total")
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	srv := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get("http://" + ln.Addr().String() + "/healthz")
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
