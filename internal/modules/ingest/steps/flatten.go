package steps

import (
	"strings"

	"github.com/yungbote/notebook-backend/internal/domain"
)

type FlattenInput struct {
	// Static-relative path and original filename of the source file; both
	// are stamped onto every node.
	FilePath string
	Filename string

	Pages          []domain.PageImage
	SegmentsByPage map[int][]domain.Segment
	CaptionsByPath map[string]string
}

// FlattenNodes builds the flat reading-order node list: per page, the OCR
// segments first, then the page's image assets, with one global monotonic
// order id across the whole source. Whitespace-only segments are dropped.
func FlattenNodes(in FlattenInput) []*domain.Node {
	var nodes []*domain.Node
	orderID := 0

	for _, page := range in.Pages {
		for _, seg := range in.SegmentsByPage[page.Page] {
			content := strings.TrimSpace(seg.Content)
			if content == "" {
				continue
			}
			label := domain.NodeText
			if seg.Label == domain.SegmentHeader {
				label = domain.NodeHeader
			}
			nodes = append(nodes, &domain.Node{
				OrderID:  orderID,
				Label:    label,
				Content:  content,
				Page:     page.Page,
				FilePath: in.FilePath,
				Filename: in.Filename,
			})
			orderID++
		}

		for _, asset := range page.Images {
			if asset.StaticPath == "" {
				continue
			}
			nodes = append(nodes, &domain.Node{
				OrderID:   orderID,
				Label:     domain.NodeImage,
				Content:   in.CaptionsByPath[asset.StaticPath],
				Page:      page.Page,
				ImagePath: asset.StaticPath,
				FilePath:  in.FilePath,
				Filename:  in.Filename,
			})
			orderID++
		}
	}
	return nodes
}
