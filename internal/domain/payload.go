package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Vector payload keys. source_id and type stay top level because the
// collection carries payload indexes on them.
const (
	PayloadSourceID = "source_id"
	PayloadType     = "type"
	PayloadContent  = "content"
	PayloadMetadata = "metadata"
)

// VectorPayload serializes the document into the point payload stored next
// to its embedding.
func (d Document) VectorPayload() map[string]any {
	meta := map[string]any{
		"file_path":  d.Metadata.FilePath,
		"filename":   d.Metadata.Filename,
		"page_start": d.Metadata.PageStart,
		"page_end":   d.Metadata.PageEnd,
		"breadcrumb": append([]string{}, d.Metadata.Breadcrumb...),
	}
	if d.Metadata.ImagePath != "" {
		meta["image_path"] = d.Metadata.ImagePath
	}
	if d.Metadata.ImageCaption != "" {
		meta["image_caption"] = d.Metadata.ImageCaption
	}
	return map[string]any{
		PayloadSourceID: d.SourceID.String(),
		PayloadType:     string(d.Type),
		PayloadContent:  d.Content,
		PayloadMetadata: meta,
	}
}

// DocumentFromVectorPayload rebuilds a document from a point id and payload.
// Numeric fields tolerate the integer and float forms payload round-trips
// produce.
func DocumentFromVectorPayload(id string, payload map[string]any) (Document, error) {
	var doc Document
	if payload == nil {
		return doc, fmt.Errorf("empty payload")
	}

	docID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return doc, fmt.Errorf("point id %q: %w", id, err)
	}
	doc.ID = docID

	rawSource, _ := payload[PayloadSourceID].(string)
	sourceID, err := uuid.Parse(strings.TrimSpace(rawSource))
	if err != nil {
		return doc, fmt.Errorf("payload source_id %q: %w", rawSource, err)
	}
	doc.SourceID = sourceID

	rawType, _ := payload[PayloadType].(string)
	switch DocumentType(rawType) {
	case DocumentText, DocumentImage:
		doc.Type = DocumentType(rawType)
	default:
		return doc, fmt.Errorf("payload type %q", rawType)
	}

	doc.Content, _ = payload[PayloadContent].(string)

	meta, _ := payload[PayloadMetadata].(map[string]any)
	if meta != nil {
		doc.Metadata.FilePath, _ = meta["file_path"].(string)
		doc.Metadata.Filename, _ = meta["filename"].(string)
		doc.Metadata.PageStart = payloadInt(meta["page_start"])
		doc.Metadata.PageEnd = payloadInt(meta["page_end"])
		doc.Metadata.Breadcrumb = payloadStrings(meta["breadcrumb"])
		doc.Metadata.ImagePath, _ = meta["image_path"].(string)
		doc.Metadata.ImageCaption, _ = meta["image_caption"].(string)
	}
	return doc, nil
}

func payloadInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int32:
		return int(t)
	case int64:
		return int(t)
	case float64:
		return int(t)
	}
	return 0
}

func payloadStrings(v any) []string {
	switch t := v.(type) {
	case []string:
		return append([]string{}, t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
