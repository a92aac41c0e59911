package record

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/kailas-cloud/querymem/internal/domain"
	domrec "github.com/kailas-cloud/querymem/internal/domain/record"
)

// --- Mocks ---

type mockRepo struct {
	saved     []domrec.Record
	saveErr   error
	callCount int
}

func (m *mockRepo) Save(_ context.Context, rec *domrec.Record) error {
	m.callCount++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, *rec)
	return nil
}

type mockEmbedder struct {
	result    domain.EmbeddingResult
	err       error
	callCount int
	lastText  string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.callCount++
	m.lastText = text
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return m.result, nil
}

func newTestService(repo *mockRepo, embed *mockEmbedder) *Service {
	svc := New(repo, embed, 3)
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	svc.newID = func() string { return "fixed-id" }
	return svc
}

func validRequest() *SaveRequest {
	return &SaveRequest{
		Query:       "  how to rotate api keys  ",
		TenantID:    "t1",
		UserID:      "u1",
		ResultCount: 5,
		Sources:     []string{"docs"},
		Metadata:    map[string]any{"lang": "en"},
	}
}

func TestSave(t *testing.T) {
	repo := &mockRepo{}
	embed := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}}
	svc := newTestService(repo, embed)

	id, err := svc.Save(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if id != "fixed-id" {
		t.Errorf("id = %q, want fixed-id", id)
	}

	if len(repo.saved) != 1 {
		t.Fatalf("saved %d records, want 1", len(repo.saved))
	}
	rec := repo.saved[0]
	if rec.QueryText() != "how to rotate api keys" {
		t.Errorf("QueryText = %q, want trimmed", rec.QueryText())
	}
	if rec.TenantID() != "t1" || rec.UserID() != "u1" {
		t.Errorf("scope = %s/%s", rec.TenantID(), rec.UserID())
	}
	if rec.ClickCount() != 0 {
		t.Errorf("fresh record ClickCount = %d, want 0", rec.ClickCount())
	}
	if embed.lastText != "how to rotate api keys" {
		t.Errorf("embedded %q, want trimmed text", embed.lastText)
	}
}

func TestSave_MissingTenant(t *testing.T) {
	repo := &mockRepo{}
	embed := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}}
	svc := newTestService(repo, embed)

	req := validRequest()
	req.TenantID = ""

	if _, err := svc.Save(context.Background(), req); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
	if embed.callCount != 0 {
		t.Error("embedder called for invalid request")
	}
}

func TestSave_EmptyQuery(t *testing.T) {
	repo := &mockRepo{}
	embed := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}}
	svc := newTestService(repo, embed)

	req := validRequest()
	req.Query = "   "

	if _, err := svc.Save(context.Background(), req); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
	if embed.callCount != 0 {
		t.Error("embedder called for blank query")
	}
}

func TestSave_NegativeResultCount(t *testing.T) {
	repo := &mockRepo{}
	embed := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}}
	svc := newTestService(repo, embed)

	req := validRequest()
	req.ResultCount = -1

	if _, err := svc.Save(context.Background(), req); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestSave_EmbedderFailure(t *testing.T) {
	repo := &mockRepo{}
	embed := &mockEmbedder{err: domain.ErrEmbeddingProvider}
	svc := newTestService(repo, embed)

	_, err := svc.Save(context.Background(), validRequest())
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Errorf("err = %v, want ErrEmbeddingProvider", err)
	}
	if repo.callCount != 0 {
		t.Error("repo called after embedding failure")
	}
}

func TestSave_DimensionMismatch(t *testing.T) {
	repo := &mockRepo{}
	embed := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}}}
	svc := newTestService(repo, embed)

	_, err := svc.Save(context.Background(), validRequest())
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Errorf("err = %v, want ErrEmbeddingProvider", err)
	}
	if repo.callCount != 0 {
		t.Error("repo called with wrong-dimension vector")
	}
}

func TestSave_NonFiniteEmbedding(t *testing.T) {
	repo := &mockRepo{}
	embed := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding: []float32{0.1, float32(math.NaN()), 0.3},
	}}
	svc := newTestService(repo, embed)

	_, err := svc.Save(context.Background(), validRequest())
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Errorf("err = %v, want ErrEmbeddingProvider", err)
	}
}

func TestSave_StoreFailureNotRetried(t *testing.T) {
	repo := &mockRepo{saveErr: domain.ErrStoreWrite}
	embed := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}}
	svc := newTestService(repo, embed)

	_, err := svc.Save(context.Background(), validRequest())
	if !errors.Is(err, domain.ErrStoreWrite) {
		t.Errorf("err = %v, want ErrStoreWrite", err)
	}
	if repo.callCount != 1 {
		t.Errorf("repo called %d times, want exactly 1", repo.callCount)
	}
}
