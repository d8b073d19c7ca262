package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SourceStatus tracks the ingestion state machine for a source.
type SourceStatus string

const (
	SourceReceived  SourceStatus = "received"
	SourceExtracted SourceStatus = "extracted"
	SourceSegmented SourceStatus = "segmented"
	SourceCaptioned SourceStatus = "captioned"
	SourceTreeBuilt SourceStatus = "tree_built"
	SourceChunked   SourceStatus = "chunked"
	SourceEmbedded  SourceStatus = "embedded"
	SourceIndexed   SourceStatus = "indexed"
	SourceDone      SourceStatus = "done"
	SourceFailed    SourceStatus = "failed"
)

type Source struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	NotebookID uuid.UUID      `gorm:"type:uuid;not null;index" json:"notebook_id"`
	Notebook   *Notebook      `gorm:"constraint:OnDelete:CASCADE;foreignKey:NotebookID;references:ID" json:"notebook,omitempty"`
	Filename   string         `gorm:"column:filename;not null" json:"filename"`
	FilePath   string         `gorm:"column:file_path;not null" json:"file_path"`
	FileHash   string         `gorm:"column:file_hash;not null;index" json:"file_hash"`
	Status     SourceStatus   `gorm:"column:status;not null;default:'received'" json:"status"`
	SkipReport datatypes.JSON `gorm:"column:skip_report;type:jsonb" json:"skip_report"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Source) TableName() string { return "source" }

// SkipReport lists the best-effort units that were skipped during ingestion.
// A source with a non-empty report is still indexed and still succeeds.
type SkipReport struct {
	OCRPages []int    `json:"ocr_pages,omitempty"`
	Captions []string `json:"captions,omitempty"`
}

func (r SkipReport) Empty() bool {
	return len(r.OCRPages) == 0 && len(r.Captions) == 0
}
