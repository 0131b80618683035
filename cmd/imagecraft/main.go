package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Minggyul/AI-Image-Craft/internal/agent"
	"github.com/Minggyul/AI-Image-Craft/internal/config"
	"github.com/Minggyul/AI-Image-Craft/internal/llm"
	"github.com/Minggyul/AI-Image-Craft/internal/logger"
	"github.com/Minggyul/AI-Image-Craft/internal/refine"
	"github.com/Minggyul/AI-Image-Craft/internal/render"
	"github.com/Minggyul/AI-Image-Craft/internal/server"
	"github.com/Minggyul/AI-Image-Craft/internal/store"
)

func main() {
	// Load configuration; missing provider keys fail here, not on the first turn.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.Log.Level)

	// Outbound clients
	llmClient := llm.NewClient(cfg.OpenAI)
	refiner := refine.New(llmClient, cfg.OpenAI)
	renderer := render.NewClient(cfg.Stability, cfg.Images)

	// Store and orchestrator
	memStore := store.New()
	turnAgent := agent.New(memStore, refiner, renderer)

	// Router
	srv := server.New(memStore, turnAgent)
	router := srv.Router(cfg.Images)

	// Start server
	serverAddr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.L.Info("starting server", "address", serverAddr)
	if err := router.Run(serverAddr); err != nil {
		logger.L.Error("failed to start server", "error", err)
		os.Exit(1)
	}
}
