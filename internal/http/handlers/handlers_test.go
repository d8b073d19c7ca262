package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/notebook-backend/internal/domain"
	"github.com/yungbote/notebook-backend/internal/modules/ingest"
	"github.com/yungbote/notebook-backend/internal/modules/retrieve"
	"github.com/yungbote/notebook-backend/internal/pkg/dbctx"
	"github.com/yungbote/notebook-backend/internal/platform/logger"
	"github.com/yungbote/notebook-backend/internal/platform/qdrant"
	"github.com/yungbote/notebook-backend/internal/platform/staticdir"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func newTestStatic(t *testing.T) *staticdir.Store {
	t.Helper()
	static, err := staticdir.New(newTestLogger(t), t.TempDir())
	if err != nil {
		t.Fatalf("staticdir: %v", err)
	}
	return static
}

type fakeNotebookRepo struct {
	rows   []*domain.Notebook
	getErr error
}

func (f *fakeNotebookRepo) Create(dbc dbctx.Context, row *domain.Notebook) (*domain.Notebook, error) {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	f.rows = append(f.rows, row)
	return row, nil
}

func (f *fakeNotebookRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Notebook, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, row := range f.rows {
		if row.ID == id {
			return row, nil
		}
	}
	return nil, nil
}

func (f *fakeNotebookRepo) GetByIDWithSources(dbc dbctx.Context, id uuid.UUID) (*domain.Notebook, error) {
	return f.GetByID(dbc, id)
}

func (f *fakeNotebookRepo) List(dbc dbctx.Context) ([]*domain.Notebook, error) {
	return f.rows, nil
}

func (f *fakeNotebookRepo) SoftDelete(dbc dbctx.Context, id uuid.UUID) error { return nil }

func (f *fakeNotebookRepo) seed(title string) *domain.Notebook {
	row := &domain.Notebook{ID: uuid.New(), Title: title}
	f.rows = append(f.rows, row)
	return row
}

type fakeSourceRepo struct {
	rows      []*domain.Source
	createErr error
}

func (f *fakeSourceRepo) Create(dbc dbctx.Context, row *domain.Source) (*domain.Source, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.Status == "" {
		row.Status = domain.SourceReceived
	}
	f.rows = append(f.rows, row)
	return row, nil
}

func (f *fakeSourceRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Source, error) {
	for _, row := range f.rows {
		if row.ID == id {
			return row, nil
		}
	}
	return nil, nil
}

func (f *fakeSourceRepo) ListByNotebook(dbc dbctx.Context, notebookID uuid.UUID) ([]*domain.Source, error) {
	var out []*domain.Source
	for _, row := range f.rows {
		if row.NotebookID == notebookID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeSourceRepo) GetByFileHash(dbc dbctx.Context, notebookID uuid.UUID, fileHash string) (*domain.Source, error) {
	for _, row := range f.rows {
		if row.NotebookID == notebookID && row.FileHash == fileHash {
			return row, nil
		}
	}
	return nil, nil
}

func (f *fakeSourceRepo) UpdateStatus(dbc dbctx.Context, id uuid.UUID, status domain.SourceStatus) error {
	for _, row := range f.rows {
		if row.ID == id {
			row.Status = status
		}
	}
	return nil
}

func (f *fakeSourceRepo) UpdateSkipReport(dbc dbctx.Context, id uuid.UUID, report domain.SkipReport) error {
	return nil
}

func (f *fakeSourceRepo) SoftDelete(dbc dbctx.Context, id uuid.UUID) error {
	kept := f.rows[:0]
	for _, row := range f.rows {
		if row.ID != id {
			kept = append(kept, row)
		}
	}
	f.rows = kept
	return nil
}

type fakeIngestor struct {
	runs []ingest.RunInput
	out  ingest.RunOutput
	err  error
}

func (f *fakeIngestor) Run(ctx context.Context, in ingest.RunInput) (ingest.RunOutput, error) {
	f.runs = append(f.runs, in)
	return f.out, f.err
}

type fakeAsker struct {
	question string
	sources  []uuid.UUID
	out      retrieve.Result
	err      error
}

func (f *fakeAsker) Retrieve(ctx context.Context, question string, sourceIDs []uuid.UUID) (retrieve.Result, error) {
	f.question = question
	f.sources = sourceIDs
	return f.out, f.err
}

type fakeVectorStore struct {
	deleted   []string
	deleteErr error
}

func (f *fakeVectorStore) EnsureCollection(ctx context.Context) error              { return nil }
func (f *fakeVectorStore) Upsert(ctx context.Context, points []qdrant.Point) error { return nil }
func (f *fakeVectorStore) Close() error                                            { return nil }

func (f *fakeVectorStore) DeleteBySource(ctx context.Context, sourceID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, sourceID)
	return nil
}

func (f *fakeVectorStore) Search(ctx context.Context, vector []float32, topK int, filter qdrant.Filter) ([]qdrant.ScoredPoint, error) {
	return nil, nil
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func init() {
	gin.SetMode(gin.TestMode)
}
