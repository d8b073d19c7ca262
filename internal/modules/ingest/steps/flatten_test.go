package steps

import (
	"testing"

	"github.com/yungbote/notebook-backend/internal/domain"
)

func TestFlattenNodesInterleavesPagesInOrder(t *testing.T) {
	in := FlattenInput{
		FilePath: "abc.pdf",
		Filename: "report.pdf",
		Pages: []domain.PageImage{
			{Page: 1, Images: []domain.ImageAsset{
				{Page: 1, Index: 1, StaticPath: "src/image_p1_1.png"},
			}},
			{Page: 2, Images: []domain.ImageAsset{
				{Page: 2, Index: 1, StaticPath: "src/image_p2_1.png"},
				{Page: 2, Index: 2, StaticPath: "src/image_p2_2.png"},
			}},
		},
		SegmentsByPage: map[int][]domain.Segment{
			1: {
				{Index: 0, Label: domain.SegmentHeader, Content: "Intro"},
				{Index: 1, Label: domain.SegmentText, Content: "First paragraph."},
			},
			2: {
				{Index: 0, Label: domain.SegmentText, Content: "Second page text."},
			},
		},
		CaptionsByPath: map[string]string{
			"src/image_p1_1.png": "a small chart",
		},
	}

	nodes := FlattenNodes(in)
	if len(nodes) != 6 {
		t.Fatalf("expected 6 nodes, got %d", len(nodes))
	}

	for i, n := range nodes {
		if n.OrderID != i {
			t.Fatalf("node %d has order_id %d", i, n.OrderID)
		}
		if n.FilePath != "abc.pdf" || n.Filename != "report.pdf" {
			t.Fatalf("node %d missing file fields: %+v", i, n)
		}
	}

	wantLabels := []domain.NodeLabel{
		domain.NodeHeader, domain.NodeText, domain.NodeImage,
		domain.NodeText, domain.NodeImage, domain.NodeImage,
	}
	for i, want := range wantLabels {
		if nodes[i].Label != want {
			t.Fatalf("node %d: expected label %s, got %s", i, want, nodes[i].Label)
		}
	}

	if nodes[2].Content != "a small chart" {
		t.Fatalf("image node missing caption: %q", nodes[2].Content)
	}
	if nodes[4].Content != "" {
		t.Fatalf("uncaptioned image should have empty content, got %q", nodes[4].Content)
	}
	if nodes[5].ImagePath != "src/image_p2_2.png" {
		t.Fatalf("unexpected image path %q", nodes[5].ImagePath)
	}
	if nodes[3].Page != 2 {
		t.Fatalf("expected page 2, got %d", nodes[3].Page)
	}
}

func TestFlattenNodesDropsBlankSegments(t *testing.T) {
	in := FlattenInput{
		Pages: []domain.PageImage{{Page: 1}},
		SegmentsByPage: map[int][]domain.Segment{
			1: {
				{Index: 0, Label: domain.SegmentText, Content: "   "},
				{Index: 1, Label: domain.SegmentText, Content: "kept"},
			},
		},
	}

	nodes := FlattenNodes(in)
	if len(nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(nodes))
	}
	if nodes[0].OrderID != 0 || nodes[0].Content != "kept" {
		t.Fatalf("unexpected node %+v", nodes[0])
	}
}

func TestFlattenNodesSkipsUnsavedImages(t *testing.T) {
	in := FlattenInput{
		Pages: []domain.PageImage{{Page: 1, Images: []domain.ImageAsset{
			{Page: 1, Index: 1},
			{Page: 1, Index: 2, StaticPath: "src/image_p1_2.png"},
		}}},
	}

	nodes := FlattenNodes(in)
	if len(nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(nodes))
	}
	if nodes[0].ImagePath != "src/image_p1_2.png" {
		t.Fatalf("unexpected image path %q", nodes[0].ImagePath)
	}
}
