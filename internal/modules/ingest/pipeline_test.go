package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/notebook-backend/internal/data/repos"
	"github.com/yungbote/notebook-backend/internal/domain"
	"github.com/yungbote/notebook-backend/internal/llm"
	"github.com/yungbote/notebook-backend/internal/pkg/dbctx"
	"github.com/yungbote/notebook-backend/internal/platform/cache"
	"github.com/yungbote/notebook-backend/internal/platform/logger"
	"github.com/yungbote/notebook-backend/internal/platform/qdrant"
	"github.com/yungbote/notebook-backend/internal/platform/staticdir"
)

type fakeGateway struct {
	structFn    func(ctx context.Context, sections []llm.SectionRef) ([]llm.SectionParent, error)
	embedFn     func(ctx context.Context, inputs []string) ([][]float32, error)
	structCalls int
	embedCalls  [][]string
}

func (g *fakeGateway) OCRPage(ctx context.Context, pagePNG []byte) ([]domain.Segment, error) {
	return nil, fmt.Errorf("unexpected ocr call")
}

func (g *fakeGateway) CaptionImage(ctx context.Context, in llm.CaptionInput) (string, error) {
	return "", fmt.Errorf("unexpected caption call")
}

func (g *fakeGateway) CorrectStructure(ctx context.Context, sections []llm.SectionRef) ([]llm.SectionParent, error) {
	g.structCalls++
	if g.structFn == nil {
		return nil, fmt.Errorf("unexpected structure call")
	}
	return g.structFn(ctx, sections)
}

func (g *fakeGateway) Rerank(ctx context.Context, in llm.RerankInput) ([]int, error) {
	return nil, fmt.Errorf("unexpected rerank call")
}

func (g *fakeGateway) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	g.embedCalls = append(g.embedCalls, append([]string{}, inputs...))
	if g.embedFn == nil {
		return nil, fmt.Errorf("unexpected embed call")
	}
	return g.embedFn(ctx, inputs)
}

func (g *fakeGateway) Batch(ctx context.Context, tasks []llm.Task) []llm.TaskResult {
	results := make([]llm.TaskResult, len(tasks))
	for i := range tasks {
		results[i] = llm.TaskResult{Index: i, Err: fmt.Errorf("unexpected batch call")}
	}
	return results
}

type fakeCache struct {
	data map[string][]byte
	sets int
}

func newFakeCache() *fakeCache { return &fakeCache{data: map[string][]byte{}} }

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, bool) {
	b, ok := c.data[key]
	return b, ok
}

func (c *fakeCache) Set(ctx context.Context, key string, value []byte) {
	c.sets++
	c.data[key] = value
}

func (c *fakeCache) Close() error { return nil }

type fakeVectorStore struct {
	upserts [][]qdrant.Point
	deleted []string
}

func (s *fakeVectorStore) EnsureCollection(ctx context.Context) error { return nil }

func (s *fakeVectorStore) Upsert(ctx context.Context, points []qdrant.Point) error {
	cp := append([]qdrant.Point{}, points...)
	s.upserts = append(s.upserts, cp)
	return nil
}

func (s *fakeVectorStore) DeleteBySource(ctx context.Context, sourceID string) error {
	s.deleted = append(s.deleted, sourceID)
	return nil
}

func (s *fakeVectorStore) Search(ctx context.Context, vector []float32, topK int, filter qdrant.Filter) ([]qdrant.ScoredPoint, error) {
	return nil, nil
}

func (s *fakeVectorStore) Close() error { return nil }

type fakeSourceRepo struct {
	gone        bool
	statuses    []domain.SourceStatus
	skipReports []domain.SkipReport
}

func (r *fakeSourceRepo) Create(dbc dbctx.Context, row *domain.Source) (*domain.Source, error) {
	return row, nil
}

func (r *fakeSourceRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Source, error) {
	if r.gone {
		return nil, nil
	}
	return &domain.Source{ID: id}, nil
}

func (r *fakeSourceRepo) ListByNotebook(dbc dbctx.Context, notebookID uuid.UUID) ([]*domain.Source, error) {
	return nil, nil
}

func (r *fakeSourceRepo) GetByFileHash(dbc dbctx.Context, notebookID uuid.UUID, fileHash string) (*domain.Source, error) {
	return nil, nil
}

func (r *fakeSourceRepo) UpdateStatus(dbc dbctx.Context, id uuid.UUID, status domain.SourceStatus) error {
	r.statuses = append(r.statuses, status)
	return nil
}

func (r *fakeSourceRepo) UpdateSkipReport(dbc dbctx.Context, id uuid.UUID, report domain.SkipReport) error {
	r.skipReports = append(r.skipReports, report)
	return nil
}

func (r *fakeSourceRepo) SoftDelete(dbc dbctx.Context, id uuid.UUID) error { return nil }

var _ repos.SourceRepo = (*fakeSourceRepo)(nil)

func newTestPipeline(t *testing.T, gw llm.Gateway, c cache.Cache, vec qdrant.VectorStore, src repos.SourceRepo) (*Pipeline, *staticdir.Store) {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	static, err := staticdir.New(log, t.TempDir())
	if err != nil {
		t.Fatalf("staticdir: %v", err)
	}
	p, err := NewPipeline(PipelineDeps{
		Log:     log,
		Gateway: gw,
		Cache:   c,
		Vec:     vec,
		Static:  static,
		Sources: src,
	})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p, static
}

// seedFlatNodes plants a cached flat-node list for the hash, stamped with a
// stale path and filename from the first upload of the same bytes.
func seedFlatNodes(t *testing.T, c *fakeCache, hash string) {
	t.Helper()
	nodes := []*domain.Node{
		{OrderID: 0, Label: domain.NodeHeader, Content: "Intro", Page: 1, FilePath: "old.pdf", Filename: "old.pdf"},
		{OrderID: 1, Label: domain.NodeText, Content: "Welcome.", Page: 1, FilePath: "old.pdf", Filename: "old.pdf"},
		{OrderID: 2, Label: domain.NodeHeader, Content: "Details", Page: 2, FilePath: "old.pdf", Filename: "old.pdf"},
		{OrderID: 3, Label: domain.NodeText, Content: "More here.", Page: 2, FilePath: "old.pdf", Filename: "old.pdf"},
		{OrderID: 4, Label: domain.NodeImage, Content: "A chart", Page: 2, ImagePath: "img/image_p2_0.png", FilePath: "old.pdf", Filename: "old.pdf"},
	}
	b, err := json.Marshal(nodes)
	if err != nil {
		t.Fatalf("marshal nodes: %v", err)
	}
	c.data[cache.FlatNodesKey("notebook", hash)] = b
}

func TestPipelineFlatCacheHitResumesAtTree(t *testing.T) {
	gw := &fakeGateway{
		structFn: func(_ context.Context, sections []llm.SectionRef) ([]llm.SectionParent, error) {
			if len(sections) != 2 || sections[0].Title != "Intro" || sections[1].Title != "Details" {
				t.Fatalf("unexpected skeleton: %+v", sections)
			}
			zero := 0
			return []llm.SectionParent{{Index: 2, ParentIndex: &zero}}, nil
		},
		embedFn: func(_ context.Context, inputs []string) ([][]float32, error) {
			vecs := make([][]float32, len(inputs))
			for i := range inputs {
				vecs[i] = []float32{float32(i + 1)}
			}
			return vecs, nil
		},
	}
	c := newFakeCache()
	vec := &fakeVectorStore{}
	src := &fakeSourceRepo{}
	p, _ := newTestPipeline(t, gw, c, vec, src)

	hash := strings.Repeat("ab", 32)
	seedFlatNodes(t, c, hash)

	out, err := p.Run(context.Background(), RunInput{
		SourceID: uuid.New(),
		FilePath: "new.pdf",
		Filename: "guide.pdf",
		FileHash: hash,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !out.FlatCacheHit {
		t.Fatal("expected flat cache hit")
	}
	if out.Documents != 3 {
		t.Fatalf("documents = %d, want 3", out.Documents)
	}
	if !out.SkipReport.Empty() {
		t.Fatalf("skip report = %+v, want empty", out.SkipReport)
	}

	wantStatuses := []domain.SourceStatus{
		domain.SourceTreeBuilt,
		domain.SourceChunked,
		domain.SourceEmbedded,
		domain.SourceIndexed,
		domain.SourceDone,
	}
	if len(src.statuses) != len(wantStatuses) {
		t.Fatalf("statuses = %v, want %v", src.statuses, wantStatuses)
	}
	for i, want := range wantStatuses {
		if src.statuses[i] != want {
			t.Fatalf("statuses[%d] = %q, want %q", i, src.statuses[i], want)
		}
	}

	if gw.structCalls != 1 {
		t.Fatalf("structure calls = %d, want 1", gw.structCalls)
	}
	if len(gw.embedCalls) != 1 {
		t.Fatalf("embed calls = %d, want 1", len(gw.embedCalls))
	}
	if gw.embedCalls[0][0] != "Intro\n\nWelcome." {
		t.Fatalf("first embedded content = %q", gw.embedCalls[0][0])
	}
	if c.sets != 0 {
		t.Fatalf("cache sets = %d, want 0 on a hit", c.sets)
	}

	if len(vec.upserts) != 1 || len(vec.upserts[0]) != 3 {
		t.Fatalf("upserts = %d batches, want 1 batch of 3", len(vec.upserts))
	}
	points := vec.upserts[0]
	meta, _ := points[0].Payload[domain.PayloadMetadata].(map[string]any)
	if meta["file_path"] != "new.pdf" || meta["filename"] != "guide.pdf" {
		t.Fatalf("cached nodes kept stale identity: %+v", meta)
	}
	if points[1].Payload[domain.PayloadContent] != "Intro > Details\n\nMore here." {
		t.Fatalf("second point content = %v", points[1].Payload[domain.PayloadContent])
	}
	imgMeta, _ := points[2].Payload[domain.PayloadMetadata].(map[string]any)
	if imgMeta["image_path"] != "img/image_p2_0.png" || imgMeta["image_caption"] != "A chart" {
		t.Fatalf("image point metadata = %+v", imgMeta)
	}

	if len(src.skipReports) != 1 || !src.skipReports[0].Empty() {
		t.Fatalf("skip reports persisted = %+v", src.skipReports)
	}
}

func TestPipelineFailureMarksSourceFailed(t *testing.T) {
	gw := &fakeGateway{}
	c := newFakeCache()
	vec := &fakeVectorStore{}
	src := &fakeSourceRepo{}
	p, static := newTestPipeline(t, gw, c, vec, src)

	id := uuid.New()
	rel, _, err := static.SaveSource(id, "pdf", strings.NewReader("definitely not a pdf"))
	if err != nil {
		t.Fatalf("SaveSource: %v", err)
	}

	_, err = p.Run(context.Background(), RunInput{
		SourceID: id,
		FilePath: rel,
		Filename: "broken.pdf",
		FileHash: strings.Repeat("cd", 32),
	})
	if err == nil {
		t.Fatal("expected extraction failure")
	}
	if len(src.statuses) == 0 || src.statuses[len(src.statuses)-1] != domain.SourceFailed {
		t.Fatalf("statuses = %v, want trailing failed", src.statuses)
	}
	if len(vec.upserts) != 0 {
		t.Fatal("nothing should reach the vector store")
	}
}

func TestPipelineAbortsWhenSourceDeleted(t *testing.T) {
	gw := &fakeGateway{}
	c := newFakeCache()
	vec := &fakeVectorStore{}
	src := &fakeSourceRepo{gone: true}
	p, static := newTestPipeline(t, gw, c, vec, src)

	id := uuid.New()
	hash := strings.Repeat("ef", 32)
	seedFlatNodes(t, c, hash)

	imgDir := filepath.Join(static.Root(), id.String())
	if err := os.MkdirAll(imgDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(imgDir, "image_p1_0.png"), []byte("png"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := p.Run(context.Background(), RunInput{
		SourceID: id,
		FilePath: "gone.pdf",
		Filename: "gone.pdf",
		FileHash: hash,
	})
	if !errors.Is(err, ErrSourceDeleted) {
		t.Fatalf("err = %v, want ErrSourceDeleted", err)
	}
	if len(src.statuses) != 0 {
		t.Fatalf("statuses = %v, want none after mid-flight delete", src.statuses)
	}
	if gw.structCalls != 0 {
		t.Fatal("structure correction should not run for a deleted source")
	}
	if _, statErr := os.Stat(imgDir); !os.IsNotExist(statErr) {
		t.Fatalf("image assets not cleaned up: %v", statErr)
	}
}

func TestNewPipelineRequiresDeps(t *testing.T) {
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	static, err := staticdir.New(log, t.TempDir())
	if err != nil {
		t.Fatalf("staticdir: %v", err)
	}
	if _, err := NewPipeline(PipelineDeps{Log: log, Static: static}); err == nil {
		t.Fatal("expected missing deps error")
	}

	p, _ := newTestPipeline(t, &fakeGateway{}, newFakeCache(), &fakeVectorStore{}, nil)
	if _, err := p.Run(context.Background(), RunInput{}); err == nil {
		t.Fatal("expected missing input error")
	}
}
