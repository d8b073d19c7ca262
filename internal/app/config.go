package app

import (
	"github.com/yungbote/notebook-backend/internal/platform/envutil"
	"github.com/yungbote/notebook-backend/internal/platform/logger"
)

type Config struct {
	Port        string
	ServiceName string
	Environment string
	Version     string
	StaticDir   string
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:        envutil.Str("PORT", "8080"),
		ServiceName: envutil.Str("SERVICE_NAME", "notebook-backend"),
		Environment: envutil.Str("ENVIRONMENT", "development"),
		Version:     envutil.Str("SERVICE_VERSION", "dev"),
		StaticDir:   envutil.Str("STATIC_DIR", "./static"),
	}
	log.Info("Config loaded", "port", cfg.Port, "environment", cfg.Environment, "static_dir", cfg.StaticDir)
	return cfg
}
