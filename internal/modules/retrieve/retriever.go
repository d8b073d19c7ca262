package retrieve

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/notebook-backend/internal/domain"
	"github.com/yungbote/notebook-backend/internal/llm"
	"github.com/yungbote/notebook-backend/internal/platform/logger"
	"github.com/yungbote/notebook-backend/internal/platform/qdrant"
)

const (
	searchTopK = 10
	maxResults = 3
)

type RetrieverDeps struct {
	Log     *logger.Logger
	Gateway llm.Gateway
	Vec     qdrant.VectorStore
}

// Retriever answers a question over a set of sources: embed the question,
// search texts and images separately, let the text model cull each list,
// return at most three hits per modality.
type Retriever struct {
	log     *logger.Logger
	gateway llm.Gateway
	vec     qdrant.VectorStore
}

func NewRetriever(deps RetrieverDeps) (*Retriever, error) {
	if deps.Log == nil || deps.Gateway == nil || deps.Vec == nil {
		return nil, fmt.Errorf("retriever: missing deps")
	}
	return &Retriever{
		log:     deps.Log.With("service", "Retriever"),
		gateway: deps.Gateway,
		vec:     deps.Vec,
	}, nil
}

type RetrievedText struct {
	Content    string `json:"content"`
	Page       int    `json:"page"`
	FilePath   string `json:"file_path"`
	Filename   string `json:"filename"`
	Breadcrumb string `json:"breadcrumb"`
}

type RetrievedImage struct {
	Caption    string `json:"caption"`
	ImagePath  string `json:"image_path"`
	FilePath   string `json:"file_path"`
	Filename   string `json:"filename"`
	Page       int    `json:"page"`
	Breadcrumb string `json:"breadcrumb"`
}

type Result struct {
	Texts  []RetrievedText  `json:"texts"`
	Images []RetrievedImage `json:"images"`
}

// Retrieve runs the query path. An embedding or search failure fails the
// query; a rerank failure degrades to the top hits by score.
func (r *Retriever) Retrieve(ctx context.Context, question string, sourceIDs []uuid.UUID) (Result, error) {
	out := Result{Texts: []RetrievedText{}, Images: []RetrievedImage{}}
	question = strings.TrimSpace(question)
	if question == "" {
		return out, fmt.Errorf("retrieve: empty question")
	}
	// No sources means nothing to search; an empty filter would match the
	// whole collection.
	if len(sourceIDs) == 0 {
		return out, nil
	}

	vecs, err := r.gateway.Embed(ctx, []string{question})
	if err != nil {
		return out, fmt.Errorf("retrieve: embed question: %w", err)
	}
	if len(vecs) != 1 {
		return out, fmt.Errorf("retrieve: embed question: got %d vectors", len(vecs))
	}
	qv := vecs[0]

	ids := make([]string, len(sourceIDs))
	for i, id := range sourceIDs {
		ids[i] = id.String()
	}

	var textDocs, imageDocs []domain.Document
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		textDocs, err = r.searchAndCull(gctx, question, qv, ids, domain.DocumentText)
		return err
	})
	g.Go(func() error {
		var err error
		imageDocs, err = r.searchAndCull(gctx, question, qv, ids, domain.DocumentImage)
		return err
	})
	if err := g.Wait(); err != nil {
		return out, err
	}

	for _, doc := range textDocs {
		out.Texts = append(out.Texts, RetrievedText{
			Content:    doc.Content,
			Page:       doc.Metadata.PageStart,
			FilePath:   doc.Metadata.FilePath,
			Filename:   doc.Metadata.Filename,
			Breadcrumb: domain.JoinBreadcrumb(doc.Metadata.Breadcrumb),
		})
	}
	for _, doc := range imageDocs {
		out.Images = append(out.Images, RetrievedImage{
			Caption:    doc.Metadata.ImageCaption,
			ImagePath:  doc.Metadata.ImagePath,
			FilePath:   doc.Metadata.FilePath,
			Filename:   doc.Metadata.Filename,
			Page:       doc.Metadata.PageStart,
			Breadcrumb: domain.JoinBreadcrumb(doc.Metadata.Breadcrumb),
		})
	}

	r.log.Info("Retrieve finished",
		"question_len", len(question),
		"sources", len(sourceIDs),
		"texts", len(out.Texts),
		"images", len(out.Images),
	)
	return out, nil
}

// searchAndCull searches one modality and keeps at most maxResults hits,
// rerank order when the model cooperates, score order otherwise.
func (r *Retriever) searchAndCull(ctx context.Context, question string, qv []float32, sourceIDs []string, docType domain.DocumentType) ([]domain.Document, error) {
	hits, err := r.vec.Search(ctx, qv, searchTopK, qdrant.Filter{
		SourceIDs: sourceIDs,
		Type:      string(docType),
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve: search %s: %w", docType, err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	docs := make([]domain.Document, 0, len(hits))
	contents := make([]string, 0, len(hits))
	for _, hit := range hits {
		doc, err := domain.DocumentFromVectorPayload(hit.ID, hit.Payload)
		if err != nil {
			r.log.Warn("Dropping undecodable point", "point_id", hit.ID, "error", err.Error())
			continue
		}
		docs = append(docs, doc)
		contents = append(contents, doc.Content)
	}
	if len(docs) == 0 {
		return nil, nil
	}

	order, err := r.gateway.Rerank(ctx, llm.RerankInput{Question: question, Documents: contents})
	if err != nil {
		r.log.Warn("Rerank failed, keeping score order", "type", string(docType), "error", err.Error())
		order = make([]int, len(docs))
		for i := range order {
			order[i] = i
		}
	}
	if len(order) > maxResults {
		order = order[:maxResults]
	}

	picked := make([]domain.Document, 0, len(order))
	for _, idx := range order {
		picked = append(picked, docs[idx])
	}
	return picked, nil
}
