package chi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kailas-cloud/querymem/internal/db"
	"github.com/kailas-cloud/querymem/internal/db/memory"
)

func TestSaveQuery_Created(t *testing.T) {
	env := newTestEnv(t)

	id := env.saveQuery(t, saveQueryRequest{
		Query:           "how to rotate api keys",
		TenantID:        "acme",
		UserID:          "u1",
		ResultCount:     3,
		SourcesSearched: []string{"docs"},
	})
	if id == "" {
		t.Fatal("expected non-empty id")
	}
}

func TestSaveQuery_InvalidBody(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/queries", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestSaveQuery_MissingTenant_400(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/v1/queries", saveQueryRequest{
		Query: "orphan query",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	var resp errorResponse
	decodeBody(t, rr, &resp)
	if resp.Code != codeValidationFailed {
		t.Errorf("error code: got %s, want %s", resp.Code, codeValidationFailed)
	}
}

func TestSaveQuery_EmbedderFailure_502(t *testing.T) {
	env := newTestEnv(t)
	env.embedder.err = errors.New("upstream down")

	rr := env.do(t, http.MethodPost, "/api/v1/queries", saveQueryRequest{
		Query: "anything", TenantID: "acme",
	})
	if rr.Code != http.StatusBadGateway {
		t.Errorf("got %d, want %d", rr.Code, http.StatusBadGateway)
	}
}

func TestFindSimilar_RankedResults(t *testing.T) {
	env := newTestEnv(t)
	env.embedder.vecs["reset password"] = []float32{1, 0, 0, 0}
	env.embedder.vecs["reset my password"] = []float32{0.95, 0.05, 0, 0}
	env.embedder.vecs["billing report"] = []float32{0, 1, 0, 0}

	env.saveQuery(t, saveQueryRequest{Query: "reset my password", TenantID: "acme"})
	env.saveQuery(t, saveQueryRequest{Query: "billing report", TenantID: "acme"})

	rr := env.do(t, http.MethodGet, "/api/v1/queries/similar?q=reset+password&tenant_id=acme", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, body %s", rr.Code, rr.Body.String())
	}

	var resp recordListResponse
	decodeBody(t, rr, &resp)
	if resp.Total != 1 {
		t.Fatalf("total: got %d, want 1", resp.Total)
	}
	if resp.Items[0].Query != "reset my password" {
		t.Errorf("query: got %q", resp.Items[0].Query)
	}
	if resp.Items[0].Score == nil || *resp.Items[0].Score <= 0.9 {
		t.Errorf("score: got %v, want > 0.9", resp.Items[0].Score)
	}
}

func TestFindSimilar_TenantIsolation(t *testing.T) {
	env := newTestEnv(t)
	env.embedder.vecs["shared query"] = []float32{1, 0, 0, 0}

	env.saveQuery(t, saveQueryRequest{Query: "shared query", TenantID: "acme"})

	rr := env.do(t, http.MethodGet, "/api/v1/queries/similar?q=shared+query&tenant_id=globex", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	var resp recordListResponse
	decodeBody(t, rr, &resp)
	if resp.Total != 0 {
		t.Errorf("cross-tenant leak: got %d matches", resp.Total)
	}
}

func TestFindSimilar_BadLimit_400(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/api/v1/queries/similar?q=x&tenant_id=acme&limit=abc", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestFindSimilar_MissingTenant_400(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/api/v1/queries/similar?q=x", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestSuggest_DeduplicatedTexts(t *testing.T) {
	env := newTestEnv(t)
	env.embedder.vecs["reset password"] = []float32{1, 0, 0, 0}

	env.saveQuery(t, saveQueryRequest{Query: "Reset Password", TenantID: "acme"})
	env.saveQuery(t, saveQueryRequest{Query: "reset  password", TenantID: "acme"})

	rr := env.do(t, http.MethodGet, "/api/v1/queries/suggest?q=reset+password&tenant_id=acme", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, body %s", rr.Code, rr.Body.String())
	}

	var resp suggestResponse
	decodeBody(t, rr, &resp)
	if len(resp.Suggestions) != 1 {
		t.Fatalf("suggestions: got %v, want one entry", resp.Suggestions)
	}
}

func TestHistory_ReturnsSavedQueries(t *testing.T) {
	env := newTestEnv(t)

	env.saveQuery(t, saveQueryRequest{Query: "first query", TenantID: "acme"})
	env.saveQuery(t, saveQueryRequest{Query: "second query", TenantID: "acme"})
	env.saveQuery(t, saveQueryRequest{Query: "other tenant", TenantID: "globex"})

	rr := env.do(t, http.MethodGet, "/api/v1/queries/history?tenant_id=acme", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, body %s", rr.Code, rr.Body.String())
	}

	var resp recordListResponse
	decodeBody(t, rr, &resp)
	if resp.Total != 2 {
		t.Fatalf("total: got %d, want 2", resp.Total)
	}
	for _, item := range resp.Items {
		if item.Query == "other tenant" {
			t.Error("cross-tenant record in history")
		}
	}
}

func TestHistory_LimitParam(t *testing.T) {
	env := newTestEnv(t)

	for _, q := range []string{"one", "two", "three"} {
		env.saveQuery(t, saveQueryRequest{Query: q, TenantID: "acme"})
	}

	rr := env.do(t, http.MethodGet, "/api/v1/queries/history?tenant_id=acme&limit=2", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	var resp recordListResponse
	decodeBody(t, rr, &resp)
	if resp.Total != 2 {
		t.Errorf("total: got %d, want 2", resp.Total)
	}
}

func TestPopular_CountsRepeats(t *testing.T) {
	env := newTestEnv(t)

	env.saveQuery(t, saveQueryRequest{Query: "deploy guide", TenantID: "acme"})
	env.saveQuery(t, saveQueryRequest{Query: "Deploy   Guide", TenantID: "acme"})
	env.saveQuery(t, saveQueryRequest{Query: "billing export", TenantID: "acme"})

	rr := env.do(t, http.MethodGet, "/api/v1/queries/popular?tenant_id=acme", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, body %s", rr.Code, rr.Body.String())
	}

	var resp popularListResponse
	decodeBody(t, rr, &resp)
	if resp.Total != 2 {
		t.Fatalf("total: got %d, want 2", resp.Total)
	}
	top := resp.Items[0]
	if top.Count != 2 || top.Score != 2 {
		t.Errorf("top entry: count %d score %d, want 2/2", top.Count, top.Score)
	}
}

func TestRecordClick_BoostsPopularity(t *testing.T) {
	env := newTestEnv(t)

	env.saveQuery(t, saveQueryRequest{Query: "deploy guide", TenantID: "acme"})

	rr := env.do(t, http.MethodPost, "/api/v1/queries/click", clickRequest{
		Query: "Deploy Guide", TenantID: "acme", ResultID: "doc-9",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("click: got %d, body %s", rr.Code, rr.Body.String())
	}
	var clickResp clickResponse
	decodeBody(t, rr, &clickResp)
	if !clickResp.Recorded {
		t.Fatal("expected click to be recorded")
	}

	// count 1 + weight 2 * clicks 1 = 3
	rr = env.do(t, http.MethodGet, "/api/v1/queries/popular?tenant_id=acme", nil)
	var resp popularListResponse
	decodeBody(t, rr, &resp)
	if len(resp.Items) != 1 || resp.Items[0].Score != 3 {
		t.Fatalf("popular after click: %+v", resp.Items)
	}
}

func TestRecordClick_UnknownQuery_NotRecorded(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/v1/queries/click", clickRequest{
		Query: "never searched", TenantID: "acme", ResultID: "doc-1",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusOK)
	}
	var resp clickResponse
	decodeBody(t, rr, &resp)
	if resp.Recorded {
		t.Error("expected recorded=false for unknown query")
	}
}

// sortFailStore degrades lookups: every sorted scan fails as if the
// store were unreachable.
type sortFailStore struct {
	*memory.Store
}

func (s *sortFailStore) SearchSort(context.Context, *db.SortQuery) (*db.SearchResult, error) {
	return nil, errors.New("connection refused")
}

func TestRecordClick_StoreFailure_NotRecorded(t *testing.T) {
	env := newTestEnvWithStore(t, &sortFailStore{memory.NewStore()})

	rr := env.do(t, http.MethodPost, "/api/v1/queries/click", clickRequest{
		Query: "deploy guide", TenantID: "acme", ResultID: "doc-1",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want %d: clicks never fail the caller", rr.Code, http.StatusOK)
	}
	var resp clickResponse
	decodeBody(t, rr, &resp)
	if resp.Recorded {
		t.Error("expected recorded=false when the store is down")
	}
}

func TestRecordClick_MissingResultID_400(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/v1/queries/click", clickRequest{
		Query: "deploy guide", TenantID: "acme",
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestHealthCheck_Healthy(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/health", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("got %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestHealthCheck_DBDown_503(t *testing.T) {
	env := newTestEnv(t)
	env.pinger.err = errors.New("connection refused")

	rr := env.do(t, http.MethodGet, "/health", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("got %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
}

func TestMetrics_Exposed(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/metrics", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("got %d, want %d", rr.Code, http.StatusOK)
	}
}
