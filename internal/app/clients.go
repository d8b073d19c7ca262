package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/yungbote/notebook-backend/internal/platform/cache"
	"github.com/yungbote/notebook-backend/internal/platform/logger"
	"github.com/yungbote/notebook-backend/internal/platform/openai"
	"github.com/yungbote/notebook-backend/internal/platform/qdrant"
	"github.com/yungbote/notebook-backend/internal/platform/staticdir"
)

type Clients struct {
	AI     openai.Client
	Cache  cache.Cache
	Vec    qdrant.VectorStore
	Static *staticdir.Store
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	ai, err := openai.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}

	// Redis is optional; without it caption and flat-node caching degrade
	// to recompute.
	var c cache.Cache = cache.Noop{}
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		rc, err := cache.NewRedisCache(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis cache: %w", err)
		}
		c = rc
	} else {
		log.Info("REDIS_ADDR not set, caching disabled")
	}

	qcfg, err := qdrant.ResolveConfigFromEnv()
	if err != nil {
		_ = c.Close()
		return Clients{}, fmt.Errorf("resolve qdrant config: %w", err)
	}
	vec, err := qdrant.NewVectorStore(log, qcfg)
	if err != nil {
		_ = c.Close()
		return Clients{}, fmt.Errorf("init qdrant store: %w", err)
	}

	static, err := staticdir.New(log, cfg.StaticDir)
	if err != nil {
		_ = vec.Close()
		_ = c.Close()
		return Clients{}, fmt.Errorf("init static dir: %w", err)
	}

	return Clients{
		AI:     ai,
		Cache:  c,
		Vec:    instrumentVectorStore(vec),
		Static: static,
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Vec != nil {
		_ = c.Vec.Close()
	}
	if c.Cache != nil {
		_ = c.Cache.Close()
	}
}
