package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/notebook-backend/internal/data/repos"
	"github.com/yungbote/notebook-backend/internal/domain"
	"github.com/yungbote/notebook-backend/internal/llm"
	"github.com/yungbote/notebook-backend/internal/modules/ingest/pipespec"
	"github.com/yungbote/notebook-backend/internal/modules/ingest/steps"
	"github.com/yungbote/notebook-backend/internal/pkg/dbctx"
	"github.com/yungbote/notebook-backend/internal/pkg/textsplit"
	"github.com/yungbote/notebook-backend/internal/platform/cache"
	"github.com/yungbote/notebook-backend/internal/platform/envutil"
	"github.com/yungbote/notebook-backend/internal/platform/logger"
	"github.com/yungbote/notebook-backend/internal/platform/qdrant"
	"github.com/yungbote/notebook-backend/internal/platform/staticdir"
)

// ErrSourceDeleted aborts a run when the source row disappears mid-flight.
var ErrSourceDeleted = errors.New("ingest: source deleted")

type PipelineDeps struct {
	Log     *logger.Logger
	Gateway llm.Gateway
	Cache   cache.Cache
	Vec     qdrant.VectorStore
	Static  *staticdir.Store
	// Sources is optional; without it status persistence and liveness checks
	// are skipped.
	Sources repos.SourceRepo
}

// Pipeline drives one source through the ingestion state machine:
// RECEIVED → EXTRACTED → SEGMENTED → CAPTIONED → TREE_BUILT → CHUNKED →
// EMBEDDED → INDEXED → DONE, or FAILED. Page OCR and image captions are
// best-effort and land in the skip report; everything else is fatal.
type Pipeline struct {
	log      *logger.Logger
	gateway  llm.Gateway
	cache    cache.Cache
	vec      qdrant.VectorStore
	static   *staticdir.Store
	sources  repos.SourceRepo
	splitter *textsplit.Splitter
	prefix   string
}

func NewPipeline(deps PipelineDeps) (*Pipeline, error) {
	if deps.Log == nil || deps.Gateway == nil || deps.Vec == nil || deps.Static == nil {
		return nil, fmt.Errorf("pipeline: missing deps")
	}
	c := deps.Cache
	if c == nil {
		c = cache.Noop{}
	}
	return &Pipeline{
		log:      deps.Log.With("service", "IngestPipeline"),
		gateway:  deps.Gateway,
		cache:    c,
		vec:      deps.Vec,
		static:   deps.Static,
		sources:  deps.Sources,
		splitter: textsplit.New(envutil.Int("CHUNK_SIZE", 1000), envutil.Int("CHUNK_OVERLAP", 200)),
		prefix:   envutil.Str("CACHE_KEY_PREFIX", "notebook"),
	}, nil
}

type RunInput struct {
	SourceID uuid.UUID
	// FilePath is the static-relative path of the uploaded file. It is what
	// document metadata records.
	FilePath string
	Filename string
	// FileHash is the sha256 hex of the uploaded bytes; it keys the
	// flat-node cache.
	FileHash string
}

type RunOutput struct {
	Documents    int
	SkipReport   domain.SkipReport
	FlatCacheHit bool
}

func (p *Pipeline) Run(ctx context.Context, in RunInput) (RunOutput, error) {
	if in.SourceID == uuid.Nil || strings.TrimSpace(in.FilePath) == "" || strings.TrimSpace(in.FileHash) == "" {
		return RunOutput{}, fmt.Errorf("pipeline: missing input")
	}
	log := p.log.With("source_id", in.SourceID.String())
	log.Info("Ingestion started",
		"filename", in.Filename,
		"stages", strings.Join(pipespec.StageOrder(p.log), ","),
	)

	out, err := p.run(ctx, log, in)
	if err != nil {
		if errors.Is(err, ErrSourceDeleted) {
			_ = p.static.RemoveSource(in.SourceID)
			log.Warn("Ingestion aborted, source deleted mid-flight")
			return out, err
		}
		p.setStatus(context.WithoutCancel(ctx), in.SourceID, domain.SourceFailed)
		log.Error("Ingestion failed", "error", err.Error())
		return out, err
	}

	p.persistSkipReport(ctx, in.SourceID, out.SkipReport)
	p.setStatus(ctx, in.SourceID, domain.SourceDone)
	log.Info("Ingestion finished",
		"documents", out.Documents,
		"flat_cache_hit", out.FlatCacheHit,
		"skipped_pages", len(out.SkipReport.OCRPages),
		"skipped_captions", len(out.SkipReport.Captions),
	)
	return out, nil
}

func (p *Pipeline) run(ctx context.Context, log *logger.Logger, in RunInput) (RunOutput, error) {
	out := RunOutput{}

	flatKey := cache.FlatNodesKey(p.prefix, in.FileHash)
	var nodes []*domain.Node
	if cache.GetJSON(ctx, p.cache, flatKey, &nodes) && len(nodes) > 0 {
		out.FlatCacheHit = true
		log.Info("Flat-node cache hit", "nodes", len(nodes))
		// Cached nodes came from an earlier upload of the same bytes; the
		// per-upload fields are restamped, extracted image paths are shared.
		for _, n := range nodes {
			n.FilePath = in.FilePath
			n.Filename = in.Filename
		}
	} else {
		var err error
		nodes, err = p.buildFlatNodes(ctx, log, in, &out)
		if err != nil {
			return out, err
		}
		if len(nodes) > 0 {
			cache.SetJSON(ctx, p.cache, flatKey, nodes)
		}
	}

	if err := p.checkLive(ctx, in.SourceID); err != nil {
		return out, err
	}
	tree, err := steps.BuildTree(ctx, steps.TreeDeps{Log: p.log, Gateway: p.gateway}, steps.TreeInput{
		SourceID: in.SourceID,
		Nodes:    nodes,
	})
	if err != nil {
		return out, err
	}
	p.setStatus(ctx, in.SourceID, domain.SourceTreeBuilt)

	docs, err := steps.BuildDocuments(steps.ChunkDeps{Log: p.log, Splitter: p.splitter}, steps.ChunkInput{
		SourceID: in.SourceID,
		Roots:    tree.Roots,
	})
	if err != nil {
		return out, err
	}
	out.Documents = len(docs.Documents)
	p.setStatus(ctx, in.SourceID, domain.SourceChunked)

	if err := p.checkLive(ctx, in.SourceID); err != nil {
		return out, err
	}
	emb, err := steps.EmbedDocuments(ctx, steps.EmbedDeps{Log: p.log, Gateway: p.gateway}, steps.EmbedInput{
		SourceID:  in.SourceID,
		Documents: docs.Documents,
	})
	if err != nil {
		return out, err
	}
	p.setStatus(ctx, in.SourceID, domain.SourceEmbedded)

	if err := p.checkLive(ctx, in.SourceID); err != nil {
		return out, err
	}
	if _, err := steps.IndexDocuments(ctx, steps.IndexDeps{Log: p.log, Vec: p.vec}, steps.IndexInput{
		SourceID:  in.SourceID,
		Documents: docs.Documents,
		Vectors:   emb.Vectors,
	}); err != nil {
		return out, err
	}
	p.setStatus(ctx, in.SourceID, domain.SourceIndexed)

	return out, nil
}

// buildFlatNodes runs the per-page and per-image stages: convert, extract,
// then OCR and captioning concurrently under the shared gateway permit.
func (p *Pipeline) buildFlatNodes(ctx context.Context, log *logger.Logger, in RunInput, out *RunOutput) ([]*domain.Node, error) {
	abs, err := p.static.Abs(in.FilePath)
	if err != nil {
		return nil, fmt.Errorf("pipeline: resolve %s: %w", in.FilePath, err)
	}

	conv, err := steps.ConvertToPDF(ctx, steps.ConvertDeps{Log: p.log}, steps.ConvertInput{Path: abs})
	if err != nil {
		return nil, err
	}
	if conv.Converted {
		log.Info("Converted upload to PDF", "pdf", conv.PDFPath)
	}

	ext, err := steps.ExtractPages(ctx, steps.ExtractDeps{Log: p.log, Static: p.static}, steps.ExtractInput{
		SourceID: in.SourceID,
		PDFPath:  conv.PDFPath,
	})
	if err != nil {
		return nil, err
	}
	p.setStatus(ctx, in.SourceID, domain.SourceExtracted)

	if err := p.checkLive(ctx, in.SourceID); err != nil {
		return nil, err
	}

	var segOut steps.SegmentOutput
	var capOut steps.CaptionImagesOutput
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		segOut, err = steps.SegmentPages(gctx, steps.SegmentDeps{Log: p.log, Gateway: p.gateway}, steps.SegmentInput{
			SourceID: in.SourceID,
			Pages:    ext.Pages,
		})
		return err
	})
	if pipespec.StageEnabled(p.log, pipespec.StageCaption) {
		g.Go(func() error {
			var err error
			capOut, err = steps.CaptionImages(gctx, steps.CaptionDeps{
				Log:     p.log,
				Gateway: p.gateway,
				Cache:   p.cache,
				Prefix:  p.prefix,
			}, steps.CaptionImagesInput{
				SourceID: in.SourceID,
				Pages:    ext.Pages,
			})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	p.setStatus(ctx, in.SourceID, domain.SourceSegmented)
	p.setStatus(ctx, in.SourceID, domain.SourceCaptioned)
	out.SkipReport.OCRPages = segOut.FailedPages
	out.SkipReport.Captions = capOut.FailedImages

	return steps.FlattenNodes(steps.FlattenInput{
		FilePath:       in.FilePath,
		Filename:       in.Filename,
		Pages:          ext.Pages,
		SegmentsByPage: segOut.SegmentsByPage,
		CaptionsByPath: capOut.CaptionsByPath,
	}), nil
}

// checkLive aborts between stages when the source row is gone. Repo errors
// are not fatal here; the next stage surfaces real trouble.
func (p *Pipeline) checkLive(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.sources == nil {
		return nil
	}
	row, err := p.sources.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		p.log.Warn("Source liveness check failed", "source_id", id.String(), "error", err.Error())
		return nil
	}
	if row == nil {
		return ErrSourceDeleted
	}
	return nil
}

func (p *Pipeline) setStatus(ctx context.Context, id uuid.UUID, status domain.SourceStatus) {
	if p.sources == nil {
		return
	}
	if err := p.sources.UpdateStatus(dbctx.Context{Ctx: ctx}, id, status); err != nil {
		p.log.Warn("Status update failed",
			"source_id", id.String(),
			"status", string(status),
			"error", err.Error(),
		)
	}
}

func (p *Pipeline) persistSkipReport(ctx context.Context, id uuid.UUID, report domain.SkipReport) {
	if p.sources == nil {
		return
	}
	if err := p.sources.UpdateSkipReport(dbctx.Context{Ctx: ctx}, id, report); err != nil {
		p.log.Warn("Skip report update failed", "source_id", id.String(), "error", err.Error())
	}
}
