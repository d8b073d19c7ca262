package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/yungbote/notebook-backend/internal/app"
	"github.com/yungbote/notebook-backend/internal/observability"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("Failed to start: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	shutdown := observability.InitOTel(context.Background(), a.Log, observability.OtelConfig{
		ServiceName: a.Cfg.ServiceName,
		Environment: a.Cfg.Environment,
		Version:     a.Cfg.Version,
	})
	if shutdown != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(ctx)
		}()
	}

	addr := ":" + a.Cfg.Port
	a.Log.Info("Server listening", "addr", addr)
	if err := a.Run(addr); err != nil {
		a.Log.Error("Server failed", "error", err.Error())
	}
}
