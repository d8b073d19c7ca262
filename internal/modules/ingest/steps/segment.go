package steps

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/notebook-backend/internal/domain"
	"github.com/yungbote/notebook-backend/internal/llm"
	"github.com/yungbote/notebook-backend/internal/platform/logger"
)

type SegmentDeps struct {
	Log     *logger.Logger
	Gateway llm.Gateway
}

type SegmentInput struct {
	SourceID uuid.UUID
	Pages    []domain.PageImage
}

type SegmentOutput struct {
	// SegmentsByPage is keyed by page number. A page that failed OCR is
	// present with an empty list.
	SegmentsByPage map[int][]domain.Segment
	FailedPages    []int
}

// SegmentPages runs one OCR task per page through the gateway. Pages fail
// independently: a failed page contributes no segments and lands in
// FailedPages, the rest of the source continues.
func SegmentPages(ctx context.Context, deps SegmentDeps, in SegmentInput) (SegmentOutput, error) {
	out := SegmentOutput{SegmentsByPage: map[int][]domain.Segment{}}
	if deps.Log == nil || deps.Gateway == nil {
		return out, fmt.Errorf("segment: missing deps")
	}
	if len(in.Pages) == 0 {
		return out, nil
	}

	tasks := make([]llm.Task, len(in.Pages))
	for i, page := range in.Pages {
		tasks[i] = llm.OCRPageTask(page.PNG)
	}

	results := deps.Gateway.Batch(ctx, tasks)
	if err := ctx.Err(); err != nil {
		return out, err
	}

	for i, res := range results {
		page := in.Pages[i].Page
		if res.Err != nil {
			deps.Log.Warn("Page OCR failed",
				"source_id", in.SourceID.String(),
				"page", page,
				"error", res.Err.Error(),
			)
			out.SegmentsByPage[page] = []domain.Segment{}
			out.FailedPages = append(out.FailedPages, page)
			continue
		}
		out.SegmentsByPage[page] = res.Segments()
	}

	deps.Log.Info("Segmented source",
		"source_id", in.SourceID.String(),
		"pages", len(in.Pages),
		"failed_pages", len(out.FailedPages),
	)
	return out, nil
}
