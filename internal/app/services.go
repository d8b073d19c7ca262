package app

import (
	"fmt"

	"github.com/yungbote/notebook-backend/internal/llm"
	"github.com/yungbote/notebook-backend/internal/modules/ingest"
	"github.com/yungbote/notebook-backend/internal/modules/retrieve"
	"github.com/yungbote/notebook-backend/internal/platform/logger"
)

type Services struct {
	Gateway   llm.Gateway
	Pipeline  *ingest.Pipeline
	Retriever *retrieve.Retriever
}

func wireServices(log *logger.Logger, clients Clients, reposet Repos) (Services, error) {
	log.Info("Wiring services...")

	gateway, err := llm.NewGateway(log, clients.AI)
	if err != nil {
		return Services{}, fmt.Errorf("init gateway: %w", err)
	}

	pipeline, err := ingest.NewPipeline(ingest.PipelineDeps{
		Log:     log,
		Gateway: gateway,
		Cache:   clients.Cache,
		Vec:     clients.Vec,
		Static:  clients.Static,
		Sources: reposet.Sources,
	})
	if err != nil {
		return Services{}, fmt.Errorf("init pipeline: %w", err)
	}

	retriever, err := retrieve.NewRetriever(retrieve.RetrieverDeps{
		Log:     log,
		Gateway: gateway,
		Vec:     clients.Vec,
	})
	if err != nil {
		return Services{}, fmt.Errorf("init retriever: %w", err)
	}

	return Services{
		Gateway:   gateway,
		Pipeline:  pipeline,
		Retriever: retriever,
	}, nil
}
