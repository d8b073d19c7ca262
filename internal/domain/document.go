package domain

import (
	"strings"

	"github.com/google/uuid"
)

// DocumentType is the discriminator of the retrieval-unit variant.
type DocumentType string

const (
	DocumentText  DocumentType = "text"
	DocumentImage DocumentType = "image"
)

// BreadcrumbSeparator joins header titles into the content prefix and the
// retrieval responses.
const BreadcrumbSeparator = " > "

type DocumentMetadata struct {
	FilePath     string   `json:"file_path"`
	Filename     string   `json:"filename"`
	PageStart    int      `json:"page_start"`
	PageEnd      int      `json:"page_end"`
	Breadcrumb   []string `json:"breadcrumb"`
	ImagePath    string   `json:"image_path,omitempty"`
	ImageCaption string   `json:"image_caption,omitempty"`
}

// Document is a single retrieval unit: a breadcrumb-prefixed text chunk or
// one embedded image. It is stored as one point in the vector store.
type Document struct {
	ID       uuid.UUID        `json:"id"`
	Type     DocumentType     `json:"type"`
	Content  string           `json:"content"`
	SourceID uuid.UUID        `json:"source_id"`
	Metadata DocumentMetadata `json:"metadata"`
}

func (d Document) IsText() bool  { return d.Type == DocumentText }
func (d Document) IsImage() bool { return d.Type == DocumentImage }

// JoinBreadcrumb renders a breadcrumb list the way it is embedded and
// returned to callers.
func JoinBreadcrumb(titles []string) string {
	return strings.Join(titles, BreadcrumbSeparator)
}
