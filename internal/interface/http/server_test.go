package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classlens/classlens/internal/application/command"
	"github.com/classlens/classlens/internal/application/query"
	"github.com/classlens/classlens/internal/domain/cluster"
	"github.com/classlens/classlens/internal/domain/shared"
	"github.com/classlens/classlens/internal/interface/http/handlers"
)

// ══════════════════════════════════════════════════════════════════════════════
// TEST FIXTURES
// ══════════════════════════════════════════════════════════════════════════════

type stubClusterRepo struct {
	clusters map[cluster.ID]*cluster.Cluster
}

func newStubClusterRepo(clusters ...*cluster.Cluster) *stubClusterRepo {
	repo := &stubClusterRepo{clusters: make(map[cluster.ID]*cluster.Cluster)}
	for _, c := range clusters {
		repo.clusters[c.ID] = c
	}
	return repo
}

func (r *stubClusterRepo) Save(_ context.Context, c *cluster.Cluster) error {
	r.clusters[c.ID] = c
	return nil
}

func (r *stubClusterRepo) GetByID(_ context.Context, id cluster.ID) (*cluster.Cluster, error) {
	c, ok := r.clusters[id]
	if !ok {
		return nil, shared.ErrClusterNotFound
	}
	return c, nil
}

func (r *stubClusterRepo) GetAll(_ context.Context) ([]*cluster.Cluster, error) {
	out := make([]*cluster.Cluster, 0, len(r.clusters))
	for _, c := range r.clusters {
		out = append(out, c)
	}
	return out, nil
}

func (r *stubClusterRepo) Delete(_ context.Context, id cluster.ID) error {
	delete(r.clusters, id)
	return nil
}

func newTestServer(t *testing.T, repo *stubClusterRepo, apiKeys []string) *Server {
	t.Helper()
	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0
	cfg.EnableCORS = false
	cfg.APIKeys = apiKeys

	return NewServer(cfg, Dependencies{
		ListClustersHandler:  query.NewListClustersHandler(repo, nil),
		SaveClusterHandler:   command.NewSaveClusterHandler(repo, nil),
		DeleteClusterHandler: command.NewDeleteClusterHandler(repo, nil),
		HealthChecker:        handlers.NewNoopHealthChecker(),
	})
}

func doRequest(s *Server, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

// ══════════════════════════════════════════════════════════════════════════════
// TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestServer_Health(t *testing.T) {
	s := newTestServer(t, newStubClusterRepo(), nil)

	rec := doRequest(s, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}

func TestServer_ListClusters(t *testing.T) {
	c, err := cluster.New("on-track", "On track", "", nil)
	require.NoError(t, err)
	s := newTestServer(t, newStubClusterRepo(c), nil)

	rec := doRequest(s, http.MethodGet, "/api/v1/clusters", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 1, resp.Meta.TotalCount)
}

func TestServer_GetClusterNotFound(t *testing.T) {
	s := newTestServer(t, newStubClusterRepo(), nil)

	rec := doRequest(s, http.MethodGet, "/api/v1/clusters/missing", "", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var resp JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "not_found", resp.Error.Code)
}

func TestServer_CreateCluster(t *testing.T) {
	repo := newStubClusterRepo()
	s := newTestServer(t, repo, nil)

	body := `{"name":"Struggling","ranges":[{"dimension":"unit:u1","high":50}]}`
	rec := doRequest(s, http.MethodPost, "/api/v1/clusters", body, nil)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, repo.clusters, 1)
}

func TestServer_CreateClusterBadDimensionKey(t *testing.T) {
	s := newTestServer(t, newStubClusterRepo(), nil)

	body := `{"name":"Struggling","ranges":[{"dimension":"??","high":50}]}`
	rec := doRequest(s, http.MethodPost, "/api/v1/clusters", body, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_CreateClusterMalformedJSON(t *testing.T) {
	s := newTestServer(t, newStubClusterRepo(), nil)

	rec := doRequest(s, http.MethodPost, "/api/v1/clusters", `{"name":`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_AdminEndpointsRequireAPIKey(t *testing.T) {
	s := newTestServer(t, newStubClusterRepo(), []string{"sekrit"})

	body := `{"name":"Struggling"}`

	rec := doRequest(s, http.MethodPost, "/api/v1/clusters", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(s, http.MethodPost, "/api/v1/clusters", body,
		map[string]string{s.config.APIKeyHeader: "sekrit"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	// Read endpoints stay open.
	rec = doRequest(s, http.MethodGet, "/api/v1/clusters", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_DeleteCluster(t *testing.T) {
	c, err := cluster.New("on-track", "On track", "", nil)
	require.NoError(t, err)
	repo := newStubClusterRepo(c)
	s := newTestServer(t, repo, nil)

	rec := doRequest(s, http.MethodDelete, "/api/v1/clusters/on-track", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, repo.clusters)
}
