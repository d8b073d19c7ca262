package steps

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/notebook-backend/internal/domain"
	"github.com/yungbote/notebook-backend/internal/pkg/textsplit"
	"github.com/yungbote/notebook-backend/internal/platform/logger"
)

type ChunkDeps struct {
	Log      *logger.Logger
	Splitter *textsplit.Splitter
}

type ChunkInput struct {
	SourceID uuid.UUID
	Roots    []*domain.Node
}

type ChunkOutput struct {
	Documents []domain.Document
	TextDocs  int
	ImageDocs int
}

// BuildDocuments walks the section forest breadth-first and emits retrieval
// documents. Under each header, text children are joined and split into
// overlapping chunks prefixed with the header breadcrumb; every image child
// becomes one image document carrying the same prefix plus its caption.
// Orphan roots emit with an empty breadcrumb.
func BuildDocuments(deps ChunkDeps, in ChunkInput) (ChunkOutput, error) {
	out := ChunkOutput{}
	if deps.Log == nil || deps.Splitter == nil {
		return out, fmt.Errorf("chunk: missing deps")
	}

	type item struct {
		node       *domain.Node
		breadcrumb []string
	}

	var queue []item
	for _, root := range in.Roots {
		if root.IsHeader() {
			queue = append(queue, item{node: root, breadcrumb: []string{root.Content}})
			continue
		}
		emitOrphan(deps, &out, in.SourceID, root)
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		var texts []*domain.Node
		var images []*domain.Node
		for _, child := range cur.node.Children {
			switch {
			case child.IsHeader():
				bc := append(append([]string{}, cur.breadcrumb...), child.Content)
				queue = append(queue, item{node: child, breadcrumb: bc})
			case child.IsImage():
				images = append(images, child)
			default:
				texts = append(texts, child)
			}
		}

		emitTextDocuments(deps, &out, in.SourceID, cur.node, cur.breadcrumb, texts)
		for _, img := range images {
			emitImageDocument(&out, in.SourceID, cur.breadcrumb, img)
		}
	}

	deps.Log.Info("Built documents",
		"source_id", in.SourceID.String(),
		"text_docs", out.TextDocs,
		"image_docs", out.ImageDocs,
	)
	return out, nil
}

func emitOrphan(deps ChunkDeps, out *ChunkOutput, sourceID uuid.UUID, n *domain.Node) {
	if n.IsImage() {
		emitImageDocument(out, sourceID, nil, n)
		return
	}
	emitTextDocuments(deps, out, sourceID, n, nil, []*domain.Node{n})
}

// emitTextDocuments joins the text children with blank lines, splits, and
// emits one document per chunk. Empty text yields nothing.
func emitTextDocuments(deps ChunkDeps, out *ChunkOutput, sourceID uuid.UUID, anchor *domain.Node, breadcrumb []string, texts []*domain.Node) {
	if len(texts) == 0 {
		return
	}
	parts := make([]string, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		parts = append(parts, t.Content)
	}
	joined := strings.Join(parts, "\n\n")
	if strings.TrimSpace(joined) == "" {
		return
	}

	pageStart, pageEnd := pageRange(texts, anchor)
	prefix := domain.JoinBreadcrumb(breadcrumb)

	for _, chunk := range deps.Splitter.Split(joined) {
		content := chunk
		if prefix != "" {
			content = prefix + "\n\n" + chunk
		}
		out.Documents = append(out.Documents, domain.Document{
			ID:       uuid.New(),
			Type:     domain.DocumentText,
			Content:  content,
			SourceID: sourceID,
			Metadata: domain.DocumentMetadata{
				FilePath:   anchor.FilePath,
				Filename:   anchor.Filename,
				PageStart:  pageStart,
				PageEnd:    pageEnd,
				Breadcrumb: append([]string{}, breadcrumb...),
			},
		})
		out.TextDocs++
	}
}

// emitImageDocument emits exactly one document per image node. The caption
// rides both in the content, after the breadcrumb prefix, and in metadata.
func emitImageDocument(out *ChunkOutput, sourceID uuid.UUID, breadcrumb []string, img *domain.Node) {
	caption := strings.TrimSpace(img.Content)
	prefix := domain.JoinBreadcrumb(breadcrumb)

	content := caption
	if prefix != "" {
		content = prefix + "\n\n" + caption
	}

	page := img.Page
	if page < 1 {
		page = 1
	}

	out.Documents = append(out.Documents, domain.Document{
		ID:       uuid.New(),
		Type:     domain.DocumentImage,
		Content:  content,
		SourceID: sourceID,
		Metadata: domain.DocumentMetadata{
			FilePath:     img.FilePath,
			Filename:     img.Filename,
			PageStart:    page,
			PageEnd:      page,
			Breadcrumb:   append([]string{}, breadcrumb...),
			ImagePath:    img.ImagePath,
			ImageCaption: caption,
		},
	})
	out.ImageDocs++
}

// pageRange is min/max over the children's pages, falling back to the
// anchor's page, then 1.
func pageRange(children []*domain.Node, anchor *domain.Node) (int, int) {
	start, end := 0, 0
	for _, c := range children {
		if c.Page < 1 {
			continue
		}
		if start == 0 || c.Page < start {
			start = c.Page
		}
		if c.Page > end {
			end = c.Page
		}
	}
	if start == 0 {
		if anchor != nil && anchor.Page >= 1 {
			return anchor.Page, anchor.Page
		}
		return 1, 1
	}
	return start, end
}
