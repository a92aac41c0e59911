package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/querymem/internal/db"
	"github.com/kailas-cloud/querymem/internal/db/memory"
	"github.com/kailas-cloud/querymem/internal/domain"
	domrec "github.com/kailas-cloud/querymem/internal/domain/record"
	recordrepo "github.com/kailas-cloud/querymem/internal/repository/record"
	feedbackuc "github.com/kailas-cloud/querymem/internal/usecase/feedback"
	healthuc "github.com/kailas-cloud/querymem/internal/usecase/health"
	historyuc "github.com/kailas-cloud/querymem/internal/usecase/history"
	popularuc "github.com/kailas-cloud/querymem/internal/usecase/popular"
	recorduc "github.com/kailas-cloud/querymem/internal/usecase/record"
	similaruc "github.com/kailas-cloud/querymem/internal/usecase/similar"
)

const testDim = 4

// --- Mocks ---

// mockEmbedder returns canned vectors keyed by normalized text.
type mockEmbedder struct {
	vecs map[string][]float32
	def  []float32
	err  error
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	if v, ok := m.vecs[domrec.Normalize(text)]; ok {
		return domain.EmbeddingResult{Embedding: v}, nil
	}
	return domain.EmbeddingResult{Embedding: m.def}, nil
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(context.Context) error { return m.err }

// --- Fixtures ---

type testEnv struct {
	router   chirouter.Router
	embedder *mockEmbedder
	pinger   *mockPinger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, memory.NewStore())
}

// recordStore is the slice of the store facade the record repository
// consumes; tests substitute failing implementations through it.
type recordStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchSort(ctx context.Context, q *db.SortQuery) (*db.SearchResult, error)
	ClickUpdate(ctx context.Context, key string, u db.ClickDelta) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

func newTestEnvWithStore(t *testing.T, store recordStore) *testEnv {
	t.Helper()

	repo := recordrepo.New(store)
	if err := repo.EnsureIndex(context.Background(), recordrepo.HNSWConfig{
		Dim: testDim, M: 16, EFConstruct: 200,
	}); err != nil {
		t.Fatalf("ensure index: %v", err)
	}

	embedder := &mockEmbedder{
		vecs: map[string][]float32{},
		def:  []float32{0, 0, 0, 1},
	}
	pinger := &mockPinger{}

	srv := NewServer(
		recorduc.New(repo, embedder, testDim),
		similaruc.New(repo, embedder, similaruc.Config{
			MinScore: 0.1, DefaultLimit: 10, MaxLimit: 100,
		}),
		historyuc.New(repo, historyuc.Config{DefaultLimit: 10, MaxLimit: 100}),
		popularuc.New(repo, popularuc.Config{
			ClickWeight: 2, DefaultLimit: 10, MaxLimit: 100, DefaultDaysBack: 7, ScanCap: 1000,
		}),
		feedbackuc.New(repo),
		healthuc.New(pinger, nil),
		zap.NewNop(),
	)

	router := chirouter.NewRouter()
	srv.RegisterRoutes(router)

	return &testEnv{router: router, embedder: embedder, pinger: pinger}
}

func (e *testEnv) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, target, &buf)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) saveQuery(t *testing.T, body saveQueryRequest) string {
	t.Helper()

	rr := e.do(t, http.MethodPost, "/api/v1/queries", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("save query: got %d, body %s", rr.Code, rr.Body.String())
	}
	var resp saveQueryResponse
	decodeBody(t, rr, &resp)
	return resp.ID
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}
