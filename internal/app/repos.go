package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/notebook-backend/internal/data/repos"
	"github.com/yungbote/notebook-backend/internal/platform/logger"
)

type Repos struct {
	Notebooks repos.NotebookRepo
	Sources   repos.SourceRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Notebooks: repos.NewNotebookRepo(db, log),
		Sources:   repos.NewSourceRepo(db, log),
	}
}
