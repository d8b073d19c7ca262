package steps

import (
	"context"
	"testing"

	"github.com/yungbote/notebook-backend/internal/domain"
	"github.com/yungbote/notebook-backend/internal/llm"
	"github.com/yungbote/notebook-backend/internal/platform/logger"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

// fakeGateway drives steps without a network. Batch runs sequentially, which
// keeps failure injection per call index deterministic.
type fakeGateway struct {
	ocrFn     func(pagePNG []byte) ([]domain.Segment, error)
	captionFn func(in llm.CaptionInput) (string, error)
	structFn  func(sections []llm.SectionRef) ([]llm.SectionParent, error)
	rerankFn  func(in llm.RerankInput) ([]int, error)
	embedFn   func(inputs []string) ([][]float32, error)

	embedBatches [][]string
	structCalls  int
}

func (f *fakeGateway) OCRPage(ctx context.Context, pagePNG []byte) ([]domain.Segment, error) {
	if f.ocrFn != nil {
		return f.ocrFn(pagePNG)
	}
	return []domain.Segment{}, nil
}

func (f *fakeGateway) CaptionImage(ctx context.Context, in llm.CaptionInput) (string, error) {
	if f.captionFn != nil {
		return f.captionFn(in)
	}
	return "", nil
}

func (f *fakeGateway) CorrectStructure(ctx context.Context, sections []llm.SectionRef) ([]llm.SectionParent, error) {
	f.structCalls++
	if f.structFn != nil {
		return f.structFn(sections)
	}
	return []llm.SectionParent{}, nil
}

func (f *fakeGateway) Rerank(ctx context.Context, in llm.RerankInput) ([]int, error) {
	if f.rerankFn != nil {
		return f.rerankFn(in)
	}
	return []int{}, nil
}

func (f *fakeGateway) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	f.embedBatches = append(f.embedBatches, append([]string{}, inputs...))
	if f.embedFn != nil {
		return f.embedFn(inputs)
	}
	out := make([][]float32, len(inputs))
	for i := range out {
		out[i] = []float32{1}
	}
	return out, nil
}

func (f *fakeGateway) Batch(ctx context.Context, tasks []llm.Task) []llm.TaskResult {
	results := make([]llm.TaskResult, len(tasks))
	for i, t := range tasks {
		results[i].Index = i
		switch t.Kind {
		case llm.TaskOCRPage:
			results[i].Value, results[i].Err = f.OCRPage(ctx, t.PagePNG)
		case llm.TaskCaptionImage:
			results[i].Value, results[i].Err = f.CaptionImage(ctx, t.Caption)
		case llm.TaskCorrectStructure:
			results[i].Value, results[i].Err = f.CorrectStructure(ctx, t.Sections)
		case llm.TaskRerank:
			results[i].Value, results[i].Err = f.Rerank(ctx, t.Rerank)
		}
	}
	return results
}

type fakeCache struct {
	store map[string][]byte
	sets  int
}

func (f *fakeCache) Get(ctx context.Context, key string) ([]byte, bool) {
	v, ok := f.store[key]
	return v, ok
}

func (f *fakeCache) Set(ctx context.Context, key string, value []byte) {
	if f.store == nil {
		f.store = map[string][]byte{}
	}
	f.store[key] = append([]byte{}, value...)
	f.sets++
}

func (f *fakeCache) Close() error { return nil }

func intPtr(v int) *int { return &v }
