package record

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/querymem/internal/db/memory"
	"github.com/kailas-cloud/querymem/internal/domain"
	domrec "github.com/kailas-cloud/querymem/internal/domain/record"
)

// --- Shared test fixtures ---

const testDim = 4

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	repo := New(memory.NewStore())
	if err := repo.EnsureIndex(context.Background(), HNSWConfig{Dim: testDim, M: 16, EFConstruct: 200}); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	return repo
}

func testScope(t *testing.T, tenant, user string) domain.Scope {
	t.Helper()
	scope, err := domain.NewScope(tenant, user)
	if err != nil {
		t.Fatalf("NewScope: %v", err)
	}
	return scope
}

func testRecord(t *testing.T, id, text string, vec []float32, scope domain.Scope, ts time.Time) domrec.Record {
	t.Helper()
	rec, err := domrec.New(id, text, vec, scope, ts, 3, []string{"docs", "wiki"}, map[string]any{"lang": "en"})
	if err != nil {
		t.Fatalf("record.New: %v", err)
	}
	return rec
}

func mustSave(t *testing.T, repo *Repo, rec domrec.Record) {
	t.Helper()
	if err := repo.Save(context.Background(), &rec); err != nil {
		t.Fatalf("Save %s: %v", rec.ID(), err)
	}
}
