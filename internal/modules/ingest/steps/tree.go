package steps

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/notebook-backend/internal/domain"
	"github.com/yungbote/notebook-backend/internal/llm"
	"github.com/yungbote/notebook-backend/internal/platform/logger"
)

type TreeDeps struct {
	Log     *logger.Logger
	Gateway llm.Gateway
}

type TreeInput struct {
	SourceID uuid.UUID
	// Flat nodes in reading order. Order ids must be unique.
	Nodes []*domain.Node
}

type TreeOutput struct {
	Roots []*domain.Node
}

// BuildTree turns the flat node list into a section forest. Phase A attaches
// every non-header to its nearest preceding header. Phase B sends the header
// skeleton to the text model and re-parents headers from the response:
// unknown parent indices degrade to root, edges that would close a cycle are
// dropped, headers absent from the response stay root. Non-header
// attachments never change in phase B. A correction failure fails the step.
func BuildTree(ctx context.Context, deps TreeDeps, in TreeInput) (TreeOutput, error) {
	out := TreeOutput{}
	if deps.Log == nil || deps.Gateway == nil {
		return out, fmt.Errorf("tree: missing deps")
	}

	nodes := make([]*domain.Node, len(in.Nodes))
	copy(nodes, in.Nodes)
	sort.SliceStable(nodes, func(a, b int) bool { return nodes[a].OrderID < nodes[b].OrderID })

	byOrder := make(map[int]*domain.Node, len(nodes))
	for _, n := range nodes {
		if _, dup := byOrder[n.OrderID]; dup {
			return out, fmt.Errorf("tree: duplicate order_id %d", n.OrderID)
		}
		byOrder[n.OrderID] = n
	}

	// Phase A.
	var currentHeader *domain.Node
	for _, n := range nodes {
		n.ParentOrderID = nil
		n.Children = nil
		if n.IsHeader() {
			currentHeader = n
			continue
		}
		if currentHeader != nil {
			pid := currentHeader.OrderID
			n.ParentOrderID = &pid
		}
	}

	// Phase B.
	var headers []*domain.Node
	for _, n := range nodes {
		if n.IsHeader() {
			headers = append(headers, n)
		}
	}
	if len(headers) > 1 {
		skeleton := make([]llm.SectionRef, len(headers))
		for i, h := range headers {
			skeleton[i] = llm.SectionRef{Index: h.OrderID, Title: h.Content, Page: h.Page}
		}
		parents, err := deps.Gateway.CorrectStructure(ctx, skeleton)
		if err != nil {
			return out, fmt.Errorf("tree: structure correction: %w", err)
		}
		applyHeaderParents(deps.Log, byOrder, headers, parents)
	}

	out.Roots = linkChildren(nodes, byOrder)

	deps.Log.Debug("Section forest built",
		"source_id", in.SourceID.String(),
		"nodes", len(nodes),
		"headers", len(headers),
		"roots", len(out.Roots),
		"tree", "\n"+asciiForest(out.Roots),
	)
	return out, nil
}

// applyHeaderParents stages the proposed header edges, then accepts them in
// order id order so that an edge closing a cycle over already accepted edges
// is the one that gets dropped.
func applyHeaderParents(log *logger.Logger, byOrder map[int]*domain.Node, headers []*domain.Node, parents []llm.SectionParent) {
	proposed := make(map[int]int, len(parents))
	for _, p := range parents {
		child, ok := byOrder[p.Index]
		if !ok || !child.IsHeader() {
			log.Warn("Structure response names unknown section, ignoring", "index", p.Index)
			continue
		}
		if p.ParentIndex == nil {
			child.ParentOrderID = nil
			continue
		}
		parent, ok := byOrder[*p.ParentIndex]
		if !ok || !parent.IsHeader() || parent.OrderID == child.OrderID {
			log.Warn("Structure response names invalid parent, keeping section at root",
				"index", p.Index,
				"parent_index", *p.ParentIndex,
			)
			child.ParentOrderID = nil
			continue
		}
		proposed[child.OrderID] = parent.OrderID
	}

	accepted := make(map[int]int, len(proposed))
	for _, h := range headers {
		parentID, ok := proposed[h.OrderID]
		if !ok {
			continue
		}
		if closesCycle(accepted, h.OrderID, parentID) {
			log.Warn("Structure response contains cycle, dropping edge",
				"index", h.OrderID,
				"parent_index", parentID,
			)
			h.ParentOrderID = nil
			continue
		}
		accepted[h.OrderID] = parentID
		pid := parentID
		h.ParentOrderID = &pid
	}
}

// closesCycle reports whether child→parent would make child its own
// ancestor over the accepted edges.
func closesCycle(accepted map[int]int, child, parent int) bool {
	cur := parent
	for steps := 0; steps <= len(accepted)+1; steps++ {
		if cur == child {
			return true
		}
		next, ok := accepted[cur]
		if !ok {
			return false
		}
		cur = next
	}
	return true
}

// linkChildren rebuilds Children lists from parent ids. Nodes arrive in
// order id order, so sibling order is reading order.
func linkChildren(nodes []*domain.Node, byOrder map[int]*domain.Node) []*domain.Node {
	var roots []*domain.Node
	for _, n := range nodes {
		if n.ParentOrderID == nil {
			roots = append(roots, n)
			continue
		}
		parent := byOrder[*n.ParentOrderID]
		if parent == nil {
			n.ParentOrderID = nil
			roots = append(roots, n)
			continue
		}
		parent.Children = append(parent.Children, n)
	}
	return roots
}

func asciiForest(roots []*domain.Node) string {
	var b strings.Builder
	for _, root := range roots {
		writeTreeNode(&b, root, "", true)
	}
	return b.String()
}

func writeTreeNode(b *strings.Builder, n *domain.Node, prefix string, last bool) {
	branch := "├── "
	childPrefix := prefix + "│   "
	if last {
		branch = "└── "
		childPrefix = prefix + "    "
	}
	fmt.Fprintf(b, "%s%s[%s %d] %s (page %d)\n", prefix, branch, n.Label, n.OrderID, snippet(n.Content, 60), n.Page)
	for i, c := range n.Children {
		writeTreeNode(b, c, childPrefix, i == len(n.Children)-1)
	}
}

func snippet(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
