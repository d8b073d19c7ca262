package app

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/notebook-backend/internal/platform/qdrant"
)

type instrumentedVectorStore struct {
	inner  qdrant.VectorStore
	tracer trace.Tracer
}

// instrumentVectorStore wraps every store operation in a span. With tracing
// disabled the provider is a no-op and the wrapper costs nothing.
func instrumentVectorStore(inner qdrant.VectorStore) qdrant.VectorStore {
	if inner == nil {
		return nil
	}
	return &instrumentedVectorStore{
		inner:  inner,
		tracer: otel.Tracer("notebook-backend/qdrant"),
	}
}

func (s *instrumentedVectorStore) EnsureCollection(ctx context.Context) error {
	ctx, span := s.start(ctx, "qdrant.ensure_collection")
	err := s.inner.EnsureCollection(ctx)
	s.finish(span, err)
	return err
}

func (s *instrumentedVectorStore) Upsert(ctx context.Context, points []qdrant.Point) error {
	ctx, span := s.start(ctx, "qdrant.upsert", attribute.Int("points", len(points)))
	err := s.inner.Upsert(ctx, points)
	s.finish(span, err)
	return err
}

func (s *instrumentedVectorStore) DeleteBySource(ctx context.Context, sourceID string) error {
	ctx, span := s.start(ctx, "qdrant.delete_by_source", attribute.String("source_id", sourceID))
	err := s.inner.DeleteBySource(ctx, sourceID)
	s.finish(span, err)
	return err
}

func (s *instrumentedVectorStore) Search(ctx context.Context, vector []float32, topK int, filter qdrant.Filter) ([]qdrant.ScoredPoint, error) {
	ctx, span := s.start(ctx, "qdrant.search",
		attribute.Int("top_k", topK),
		attribute.String("filter.type", filter.Type),
		attribute.Int("filter.sources", len(filter.SourceIDs)),
	)
	out, err := s.inner.Search(ctx, vector, topK, filter)
	s.finish(span, err)
	return out, err
}

func (s *instrumentedVectorStore) Close() error {
	return s.inner.Close()
}

func (s *instrumentedVectorStore) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (s *instrumentedVectorStore) finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
