package steps

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/notebook-backend/internal/domain"
	"github.com/yungbote/notebook-backend/internal/platform/logger"
	"github.com/yungbote/notebook-backend/internal/platform/qdrant"
)

type IndexDeps struct {
	Log *logger.Logger
	Vec qdrant.VectorStore
}

type IndexInput struct {
	SourceID  uuid.UUID
	Documents []domain.Document
	// Vectors aligns index-for-index with Documents.
	Vectors [][]float32
}

type IndexOutput struct {
	PointsUpserted int
}

// IndexDocuments writes every document and its vector into the store as one
// logical upsert. Point id is the document UUID, so a re-run overwrites
// instead of duplicating.
func IndexDocuments(ctx context.Context, deps IndexDeps, in IndexInput) (IndexOutput, error) {
	out := IndexOutput{}
	if deps.Log == nil || deps.Vec == nil {
		return out, fmt.Errorf("index: missing deps")
	}
	if len(in.Documents) != len(in.Vectors) {
		return out, fmt.Errorf("index: documents/vectors mismatch (%d vs %d)", len(in.Documents), len(in.Vectors))
	}
	if len(in.Documents) == 0 {
		return out, nil
	}

	points := make([]qdrant.Point, 0, len(in.Documents))
	for i, doc := range in.Documents {
		if len(in.Vectors[i]) == 0 {
			return out, fmt.Errorf("index: document %d has no vector", i)
		}
		points = append(points, qdrant.Point{
			ID:      doc.ID.String(),
			Vector:  in.Vectors[i],
			Payload: doc.VectorPayload(),
		})
	}

	if err := deps.Vec.Upsert(ctx, points); err != nil {
		return out, fmt.Errorf("index: %w", err)
	}

	out.PointsUpserted = len(points)
	deps.Log.Info("Indexed documents",
		"source_id", in.SourceID.String(),
		"points", len(points),
	)
	return out, nil
}
