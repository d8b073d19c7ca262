package repos

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/notebook-backend/internal/domain"
	"github.com/yungbote/notebook-backend/internal/pkg/dbctx"
	"github.com/yungbote/notebook-backend/internal/platform/logger"
)

type SourceRepo interface {
	Create(dbc dbctx.Context, row *domain.Source) (*domain.Source, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Source, error)
	ListByNotebook(dbc dbctx.Context, notebookID uuid.UUID) ([]*domain.Source, error)
	// GetByFileHash finds a live source with identical content in the same
	// notebook. Backs the duplicate_of field on upload responses.
	GetByFileHash(dbc dbctx.Context, notebookID uuid.UUID, fileHash string) (*domain.Source, error)
	UpdateStatus(dbc dbctx.Context, id uuid.UUID, status domain.SourceStatus) error
	UpdateSkipReport(dbc dbctx.Context, id uuid.UUID, report domain.SkipReport) error
	SoftDelete(dbc dbctx.Context, id uuid.UUID) error
}

type sourceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSourceRepo(db *gorm.DB, baseLog *logger.Logger) SourceRepo {
	return &sourceRepo{db: db, log: baseLog.With("repo", "SourceRepo")}
}

func (r *sourceRepo) Create(dbc dbctx.Context, row *domain.Source) (*domain.Source, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil, nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.Status == "" {
		row.Status = domain.SourceReceived
	}
	if err := t.WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *sourceRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Source, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*domain.Source
	if err := t.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *sourceRepo) ListByNotebook(dbc dbctx.Context, notebookID uuid.UUID) ([]*domain.Source, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*domain.Source
	if notebookID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("notebook_id = ?", notebookID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sourceRepo) GetByFileHash(dbc dbctx.Context, notebookID uuid.UUID, fileHash string) (*domain.Source, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if notebookID == uuid.Nil || fileHash == "" {
		return nil, nil
	}
	var out []*domain.Source
	if err := t.WithContext(dbc.Ctx).
		Where("notebook_id = ? AND file_hash = ?", notebookID, fileHash).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *sourceRepo) UpdateStatus(dbc dbctx.Context, id uuid.UUID, status domain.SourceStatus) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Model(&domain.Source{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *sourceRepo) UpdateSkipReport(dbc dbctx.Context, id uuid.UUID, report domain.SkipReport) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return t.WithContext(dbc.Ctx).
		Model(&domain.Source{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"skip_report": datatypes.JSON(raw),
			"updated_at":  time.Now().UTC(),
		}).Error
}

func (r *sourceRepo) SoftDelete(dbc dbctx.Context, id uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).Where("id = ?", id).Delete(&domain.Source{}).Error
}
