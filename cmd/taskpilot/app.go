package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/PabloGalante/taskpilot/internal/adapters/llm"
	firestorestore "github.com/PabloGalante/taskpilot/internal/adapters/storage/firestore"
	memstore "github.com/PabloGalante/taskpilot/internal/adapters/storage/memory"
	sqlitestore "github.com/PabloGalante/taskpilot/internal/adapters/storage/sqlite"
	"github.com/PabloGalante/taskpilot/internal/app/conversation"
	"github.com/PabloGalante/taskpilot/internal/app/tasks"
	"github.com/PabloGalante/taskpilot/internal/config"
	"github.com/PabloGalante/taskpilot/internal/domain"
	"github.com/PabloGalante/taskpilot/internal/observability"
)

// app holds the wired services for one process.
type app struct {
	chat   *conversation.Service
	tasks  *tasks.Service
	closer io.Closer
}

func (a *app) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log := observability.WithFields("component", "bootstrap", "mode", cfg.Mode)

	log.Info("using llm provider", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)
	completer, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("error initializing LLM client: %w", err)
	}

	var (
		store  domain.TaskStore
		closer io.Closer
	)
	switch cfg.Storage.Backend {
	case config.StorageFirestore:
		log.Info("using Firestore storage", "project", cfg.Storage.GCPProjectID)
		fs, err := firestorestore.NewStore(ctx, cfg.Storage.GCPProjectID)
		if err != nil {
			return nil, fmt.Errorf("error initializing Firestore store: %w", err)
		}
		store, closer = fs, fs
	case config.StorageSQLite:
		log.Info("using SQLite storage", "path", cfg.Storage.SQLitePath)
		db, err := sqlitestore.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("error initializing SQLite store: %w", err)
		}
		store, closer = db, db
	default:
		log.Info("using in-memory storage")
		store = memstore.NewTaskStore()
	}

	secret := []byte(cfg.Chat.StateSecret)
	if len(secret) == 0 {
		log.Warn("no state secret configured, state tokens will not survive a restart")
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate state secret: %w", err)
		}
	}

	chat := conversation.NewService(completer, store, conversation.Options{
		Location: cfg.Location(),
		Codec:    conversation.NewStateCodec(secret, cfg.Chat.StateTTL),
	})

	return &app{
		chat:   chat,
		tasks:  tasks.NewService(store),
		closer: closer,
	}, nil
}
