package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/notebook-backend/internal/data/repos/testutil"
	"github.com/yungbote/notebook-backend/internal/domain"
	"github.com/yungbote/notebook-backend/internal/pkg/dbctx"
)

func TestNotebookRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewNotebookRepo(db, testutil.Logger(t))

	created, err := repo.Create(dbc, &domain.Notebook{Title: "research"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Fatal("Create left nil id")
	}

	got, err := repo.GetByID(dbc, created.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: err=%v row=%v", err, got)
	}
	if got.Title != "research" {
		t.Fatalf("GetByID title %q", got.Title)
	}

	if got, err := repo.GetByID(dbc, uuid.New()); err != nil || got != nil {
		t.Fatalf("GetByID unknown: err=%v row=%v", err, got)
	}

	testutil.SeedSource(t, ctx, tx, created.ID, "a.pdf", "hash-a")
	testutil.SeedSource(t, ctx, tx, created.ID, "b.pdf", "hash-b")

	with, err := repo.GetByIDWithSources(dbc, created.ID)
	if err != nil || with == nil {
		t.Fatalf("GetByIDWithSources: err=%v row=%v", err, with)
	}
	if len(with.Sources) != 2 {
		t.Fatalf("preloaded %d sources", len(with.Sources))
	}

	rows, err := repo.List(dbc)
	if err != nil || len(rows) == 0 {
		t.Fatalf("List: err=%v len=%d", err, len(rows))
	}

	if err := repo.SoftDelete(dbc, created.ID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if got, err := repo.GetByID(dbc, created.ID); err != nil || got != nil {
		t.Fatalf("GetByID after delete: err=%v row=%v", err, got)
	}
}
