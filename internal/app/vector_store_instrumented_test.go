package app

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/notebook-backend/internal/platform/qdrant"
)

func TestInstrumentVectorStorePassThrough(t *testing.T) {
	inner := &fakeInstrumentedInner{}
	vs := instrumentVectorStore(inner)
	if vs == nil {
		t.Fatalf("instrumentVectorStore: expected non-nil wrapper")
	}

	if err := vs.EnsureCollection(context.Background()); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}
	if err := vs.Upsert(context.Background(), []qdrant.Point{{ID: "p1", Vector: []float32{1, 2, 3}}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	hits, err := vs.Search(context.Background(), []float32{1, 2, 3}, 3, qdrant.Filter{Type: "text"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "p1" {
		t.Fatalf("Search: unexpected hits %+v", hits)
	}
	if err := vs.DeleteBySource(context.Background(), "src"); err != nil {
		t.Fatalf("DeleteBySource: %v", err)
	}
	if err := vs.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if inner.ensureCalls != 1 || inner.upsertCalls != 1 || inner.searchCalls != 1 || inner.deleteCalls != 1 || inner.closeCalls != 1 {
		t.Fatalf(
			"unexpected call counts: ensure=%d upsert=%d search=%d delete=%d close=%d",
			inner.ensureCalls,
			inner.upsertCalls,
			inner.searchCalls,
			inner.deleteCalls,
			inner.closeCalls,
		)
	}
}

func TestInstrumentVectorStoreErrorPassThrough(t *testing.T) {
	want := errors.New("delete failed")
	inner := &fakeInstrumentedInner{deleteErr: want}
	vs := instrumentVectorStore(inner)

	err := vs.DeleteBySource(context.Background(), "src")
	if !errors.Is(err, want) {
		t.Fatalf("DeleteBySource: expected %v, got=%v", want, err)
	}
}

func TestInstrumentVectorStoreNilInner(t *testing.T) {
	if vs := instrumentVectorStore(nil); vs != nil {
		t.Fatalf("nil inner should stay nil, got %T", vs)
	}
}

type fakeInstrumentedInner struct {
	ensureCalls int
	upsertCalls int
	searchCalls int
	deleteCalls int
	closeCalls  int

	deleteErr error
}

func (f *fakeInstrumentedInner) EnsureCollection(_ context.Context) error {
	f.ensureCalls++
	return nil
}

func (f *fakeInstrumentedInner) Upsert(_ context.Context, _ []qdrant.Point) error {
	f.upsertCalls++
	return nil
}

func (f *fakeInstrumentedInner) Search(_ context.Context, _ []float32, _ int, _ qdrant.Filter) ([]qdrant.ScoredPoint, error) {
	f.searchCalls++
	return []qdrant.ScoredPoint{{ID: "p1", Score: 0.9}}, nil
}

func (f *fakeInstrumentedInner) DeleteBySource(_ context.Context, _ string) error {
	f.deleteCalls++
	return f.deleteErr
}

func (f *fakeInstrumentedInner) Close() error {
	f.closeCalls++
	return nil
}
