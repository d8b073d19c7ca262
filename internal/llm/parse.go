package llm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yungbote/notebook-backend/internal/domain"
)

func intFromAny(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case int:
		return t, true
	case int64:
		return int(t), true
	}
	return 0, false
}

// parseOCRResponse pulls typed segments out of the model object and sorts
// them by index. Segments keep their content verbatim apart from trimming.
func parseOCRResponse(obj map[string]any) ([]domain.Segment, error) {
	if obj == nil {
		return nil, fmt.Errorf("empty response")
	}
	rawList, ok := obj["ocr_response"].([]any)
	if !ok {
		return nil, fmt.Errorf(`missing "ocr_response" array`)
	}

	segments := make([]domain.Segment, 0, len(rawList))
	for i, raw := range rawList {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("segment %d: not an object", i)
		}
		idx, ok := intFromAny(m["index"])
		if !ok {
			return nil, fmt.Errorf("segment %d: bad index", i)
		}
		label, _ := m["label"].(string)
		label = strings.ToLower(strings.TrimSpace(label))
		if label != string(domain.SegmentHeader) && label != string(domain.SegmentText) {
			return nil, fmt.Errorf("segment %d: bad label %q", i, label)
		}
		content, ok := m["content"].(string)
		if !ok {
			return nil, fmt.Errorf("segment %d: bad content", i)
		}
		segments = append(segments, domain.Segment{
			Index:   idx,
			Label:   domain.SegmentLabel(label),
			Content: strings.TrimSpace(content),
		})
	}

	sort.SliceStable(segments, func(a, b int) bool { return segments[a].Index < segments[b].Index })
	return segments, nil
}

func parseCaptionResponse(obj map[string]any) (string, error) {
	if obj == nil {
		return "", fmt.Errorf("empty response")
	}
	desc, ok := obj["description"].(string)
	if !ok {
		return "", fmt.Errorf(`missing "description"`)
	}
	return strings.TrimSpace(desc), nil
}

func parseStructureResponse(obj map[string]any) ([]SectionParent, error) {
	if obj == nil {
		return nil, fmt.Errorf("empty response")
	}
	rawList, ok := obj["sections"].([]any)
	if !ok {
		return nil, fmt.Errorf(`missing "sections" array`)
	}

	out := make([]SectionParent, 0, len(rawList))
	for i, raw := range rawList {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("section %d: not an object", i)
		}
		idx, ok := intFromAny(m["index"])
		if !ok {
			return nil, fmt.Errorf("section %d: bad index", i)
		}
		entry := SectionParent{Index: idx}
		if pv, present := m["parent_index"]; present && pv != nil {
			p, ok := intFromAny(pv)
			if !ok {
				return nil, fmt.Errorf("section %d: bad parent_index", i)
			}
			entry.ParentIndex = &p
		}
		out = append(out, entry)
	}
	return out, nil
}

// parseRerankResponse validates against the document count: out-of-range and
// repeated indices are dropped, order is preserved.
func parseRerankResponse(obj map[string]any, numDocs int) ([]int, error) {
	if obj == nil {
		return nil, fmt.Errorf("empty response")
	}
	rawList, ok := obj["reranked_indices"].([]any)
	if !ok {
		return nil, fmt.Errorf(`missing "reranked_indices" array`)
	}

	seen := make(map[int]bool, len(rawList))
	out := make([]int, 0, len(rawList))
	for i, raw := range rawList {
		idx, ok := intFromAny(raw)
		if !ok {
			return nil, fmt.Errorf("entry %d: not an integer", i)
		}
		if idx < 0 || idx >= numDocs || seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, idx)
	}
	return out, nil
}
