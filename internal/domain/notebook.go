package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Notebook struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Title     string         `gorm:"column:title;not null" json:"title"`
	Sources   []*Source      `gorm:"foreignKey:NotebookID;references:ID" json:"sources,omitempty"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Notebook) TableName() string { return "notebook" }
