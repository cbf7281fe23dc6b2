package main

import (
	"context"
	"log"
	"net/http"

	httpadapter "github.com/hempbis/hempbis-agent/internal/adapters/http"
	"github.com/hempbis/hempbis-agent/internal/adapters/llm"
	filestore "github.com/hempbis/hempbis-agent/internal/adapters/storage/file"
	firestorestore "github.com/hempbis/hempbis-agent/internal/adapters/storage/firestore"
	memstore "github.com/hempbis/hempbis-agent/internal/adapters/storage/memory"
	"github.com/hempbis/hempbis-agent/internal/app/chat"
	"github.com/hempbis/hempbis-agent/internal/app/digest"
	"github.com/hempbis/hempbis-agent/internal/config"
	"github.com/hempbis/hempbis-agent/internal/domain"
	"github.com/hempbis/hempbis-agent/internal/observability"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()
	logger := observability.Logger()

	// Model backend: mock for dev, Gemini otherwise.
	var (
		backend domain.ModelBackend
		err     error
	)
	if cfg.UseMockLLM {
		logger.Info("using mock model backend")
		backend = llm.NewMockBackend()
	} else {
		logger.Info("using Gemini model backend", "model", cfg.ModelName)
		backend, err = llm.NewGeminiBackend(ctx, cfg.GeminiAPIKey)
		if err != nil {
			log.Fatalf("error initializing Gemini backend: %v", err)
		}
	}

	// Storage: firestore, file-snapshot, or plain memory.
	var store domain.ThreadStore
	switch cfg.StorageBackend {
	case "firestore":
		logger.Info("using Firestore thread store", "project", cfg.GCPProjectID)
		fsStore, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			log.Fatalf("error initializing Firestore store: %v", err)
		}
		defer fsStore.Close()
		store = fsStore

	case "file":
		logger.Info("using file-backed thread store", "path", cfg.DataFile)
		store = memstore.NewThreadStore(filestore.NewSnapshot(cfg.DataFile), logger)

	default:
		logger.Info("using in-memory thread store")
		store = memstore.NewThreadStore(nil, logger)
	}

	chatSvc := chat.NewService(backend, store, logger,
		chat.WithTurnTimeout(cfg.TurnTimeout),
		chat.WithErrorRedactor(llm.RedactError),
	)
	digestSvc := digest.NewService(backend, logger)

	handler := httpadapter.NewServer(chatSvc, digestSvc, cfg.StaticDir)

	addr := ":" + cfg.Port
	logger.Info("Hempbis API listening", "addr", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatal(err)
	}
}
