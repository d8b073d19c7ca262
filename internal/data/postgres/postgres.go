package postgres

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yungbote/notebook-backend/internal/domain"
	"github.com/yungbote/notebook-backend/internal/platform/envutil"
	"github.com/yungbote/notebook-backend/internal/platform/logger"
)

type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

// New connects to Postgres from POSTGRES_* env vars and enables the
// uuid-ossp extension the models' id defaults rely on.
func New(log *logger.Logger) (*Service, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	serviceLog := log.With("service", "PostgresService")

	host := envutil.Str("POSTGRES_HOST", "localhost")
	port := envutil.Str("POSTGRES_PORT", "5432")
	user := envutil.Str("POSTGRES_USER", "postgres")
	password := envutil.Str("POSTGRES_PASSWORD", "")
	name := envutil.Str("POSTGRES_NAME", "notebook")
	sslMode := envutil.Str("POSTGRES_SSLMODE", "disable")

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, password, host, port, name, sslMode)

	serviceLog.Info("Connecting to Postgres...", "host", host, "db", name)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return nil, fmt.Errorf("enable uuid-ossp: %w", err)
	}

	return &Service{db: db, log: serviceLog}, nil
}

func (s *Service) DB() *gorm.DB { return s.db }

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := s.db.AutoMigrate(
		&domain.Notebook{},
		&domain.Source{},
	); err != nil {
		s.log.Error("Auto migration failed", "error", err.Error())
		return err
	}
	return nil
}

func (s *Service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
