package repos

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/notebook-backend/internal/data/repos/testutil"
	"github.com/yungbote/notebook-backend/internal/domain"
	"github.com/yungbote/notebook-backend/internal/pkg/dbctx"
)

func TestSourceRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewSourceRepo(db, testutil.Logger(t))

	nb := testutil.SeedNotebook(t, ctx, tx, "papers")

	created, err := repo.Create(dbc, &domain.Source{
		NotebookID: nb.ID,
		Filename:   "paper.pdf",
		FilePath:   "static/paper.pdf",
		FileHash:   "deadbeef",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Status != domain.SourceReceived {
		t.Fatalf("default status %q", created.Status)
	}

	got, err := repo.GetByID(dbc, created.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: err=%v row=%v", err, got)
	}

	byHash, err := repo.GetByFileHash(dbc, nb.ID, "deadbeef")
	if err != nil || byHash == nil || byHash.ID != created.ID {
		t.Fatalf("GetByFileHash: err=%v row=%v", err, byHash)
	}
	if miss, err := repo.GetByFileHash(dbc, nb.ID, "cafef00d"); err != nil || miss != nil {
		t.Fatalf("GetByFileHash miss: err=%v row=%v", err, miss)
	}
	otherNotebook := testutil.SeedNotebook(t, ctx, tx, "other")
	if miss, err := repo.GetByFileHash(dbc, otherNotebook.ID, "deadbeef"); err != nil || miss != nil {
		t.Fatalf("hash dedup must stay notebook-scoped: err=%v row=%v", err, miss)
	}

	if err := repo.UpdateStatus(dbc, created.ID, domain.SourceDone); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if err := repo.UpdateSkipReport(dbc, created.ID, domain.SkipReport{
		OCRPages: []int{3},
		Captions: []string{"src/image_p3_1.png"},
	}); err != nil {
		t.Fatalf("UpdateSkipReport: %v", err)
	}

	got, err = repo.GetByID(dbc, created.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID reload: err=%v row=%v", err, got)
	}
	if got.Status != domain.SourceDone {
		t.Fatalf("status %q", got.Status)
	}
	var report domain.SkipReport
	if err := json.Unmarshal(got.SkipReport, &report); err != nil {
		t.Fatalf("skip report json: %v", err)
	}
	if len(report.OCRPages) != 1 || report.OCRPages[0] != 3 {
		t.Fatalf("skip report %+v", report)
	}

	rows, err := repo.ListByNotebook(dbc, nb.ID)
	if err != nil || len(rows) != 1 {
		t.Fatalf("ListByNotebook: err=%v len=%d", err, len(rows))
	}

	if err := repo.SoftDelete(dbc, created.ID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if got, err := repo.GetByID(dbc, created.ID); err != nil || got != nil {
		t.Fatalf("GetByID after delete: err=%v row=%v", err, got)
	}
	if byHash, err := repo.GetByFileHash(dbc, nb.ID, "deadbeef"); err != nil || byHash != nil {
		t.Fatalf("deleted source must not satisfy dedup: err=%v row=%v", err, byHash)
	}
}

func TestSourceRepoNilGuards(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewSourceRepo(db, testutil.Logger(t))

	if row, err := repo.GetByID(dbc, uuid.Nil); err != nil || row != nil {
		t.Fatalf("nil id: err=%v row=%v", err, row)
	}
	if err := repo.UpdateStatus(dbc, uuid.Nil, domain.SourceDone); err != nil {
		t.Fatalf("nil id update: %v", err)
	}
	if rows, err := repo.ListByNotebook(dbc, uuid.Nil); err != nil || len(rows) != 0 {
		t.Fatalf("nil notebook: err=%v len=%d", err, len(rows))
	}
}
