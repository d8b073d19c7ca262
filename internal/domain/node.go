package domain

// SegmentLabel classifies an OCR output unit within a page.
type SegmentLabel string

const (
	SegmentHeader SegmentLabel = "header"
	SegmentText   SegmentLabel = "text"
)

// Segment is one OCR output unit. Index is the within-page ordinal in
// reading order (top-to-bottom, left-to-right).
type Segment struct {
	Index   int          `json:"index"`
	Label   SegmentLabel `json:"label"`
	Content string       `json:"content"`
}

// ImageAsset is an embedded bitmap extracted from a page and persisted under
// the static directory. Bytes are transient and dropped after captioning.
type ImageAsset struct {
	Page       int    `json:"page"`
	Index      int    `json:"index"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Ext        string `json:"ext"`
	StaticPath string `json:"static_path"`
	Bytes      []byte `json:"-"`
}

// PageImage is a rasterized page plus the embedded images found on it.
// Transient: it exists during ingestion only.
type PageImage struct {
	Page   int          `json:"page"`
	PNG    []byte       `json:"-"`
	Images []ImageAsset `json:"images"`
}

// NodeLabel is the discriminator of the flat pre-tree node variant.
type NodeLabel string

const (
	NodeHeader NodeLabel = "header"
	NodeText   NodeLabel = "text"
	NodeImage  NodeLabel = "image"
)

// Node is a unit in the flat reading-order list and, after tree building, a
// vertex of the section forest. OrderID is globally monotonic across pages.
// Parent links are order ids rather than pointers so ownership stays strictly
// top-down; Children is populated only on tree nodes.
type Node struct {
	OrderID       int       `json:"order_id"`
	Label         NodeLabel `json:"label"`
	Content       string    `json:"content"`
	Page          int       `json:"page"`
	ParentOrderID *int      `json:"parent_order_id,omitempty"`
	ImagePath     string    `json:"image_path,omitempty"`
	FilePath      string    `json:"file_path"`
	Filename      string    `json:"filename"`
	Children      []*Node   `json:"children,omitempty"`
}

func (n *Node) IsHeader() bool { return n != nil && n.Label == NodeHeader }
func (n *Node) IsText() bool   { return n != nil && n.Label == NodeText }
func (n *Node) IsImage() bool  { return n != nil && n.Label == NodeImage }
