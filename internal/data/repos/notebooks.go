package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/notebook-backend/internal/domain"
	"github.com/yungbote/notebook-backend/internal/pkg/dbctx"
	"github.com/yungbote/notebook-backend/internal/platform/logger"
)

type NotebookRepo interface {
	Create(dbc dbctx.Context, row *domain.Notebook) (*domain.Notebook, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Notebook, error)
	// GetByIDWithSources preloads the notebook's live sources in upload order.
	GetByIDWithSources(dbc dbctx.Context, id uuid.UUID) (*domain.Notebook, error)
	List(dbc dbctx.Context) ([]*domain.Notebook, error)
	SoftDelete(dbc dbctx.Context, id uuid.UUID) error
}

type notebookRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNotebookRepo(db *gorm.DB, baseLog *logger.Logger) NotebookRepo {
	return &notebookRepo{db: db, log: baseLog.With("repo", "NotebookRepo")}
}

func (r *notebookRepo) Create(dbc dbctx.Context, row *domain.Notebook) (*domain.Notebook, error) {
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
	if err := t.WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *notebookRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Notebook, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*domain.Notebook
	if err := t.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *notebookRepo) GetByIDWithSources(dbc dbctx.Context, id uuid.UUID) (*domain.Notebook, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*domain.Notebook
	if err := t.WithContext(dbc.Ctx).
		Preload("Sources", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *notebookRepo) List(dbc dbctx.Context) ([]*domain.Notebook, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*domain.Notebook
	if err := t.WithContext(dbc.Ctx).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *notebookRepo) SoftDelete(dbc dbctx.Context, id uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).Where("id = ?", id).Delete(&domain.Notebook{}).Error
}
