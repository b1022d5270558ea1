package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/letsssgooo/funle/internal/auth"
	"github.com/letsssgooo/funle/internal/config"
	"github.com/letsssgooo/funle/internal/content"
	"github.com/letsssgooo/funle/internal/course"
	"github.com/letsssgooo/funle/internal/httpapi"
	"github.com/letsssgooo/funle/internal/progress"
	"github.com/letsssgooo/funle/internal/quiz"
	"github.com/letsssgooo/funle/internal/selector"
	"github.com/letsssgooo/funle/internal/storage"
	"github.com/letsssgooo/funle/internal/storage/bolt"
	"github.com/letsssgooo/funle/internal/storage/postgres"
	"github.com/letsssgooo/funle/internal/token"
)

func openStorage(ctx context.Context, cfg config.StorageConfig) (storage.Storage, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return storage.NewMemoryStorage(), nil
	case config.DriverBolt:
		return bolt.Open(cfg.BoltPath)
	case config.DriverPostgres:
		return postgres.NewStorage(ctx, cfg.PostgresDSN)
	}

	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

func newTokenService(cfg config.TokenConfig) (*token.Service, error) {
	return token.NewService(
		[]byte(cfg.Secret),
		token.WithAccessTTL(cfg.AccessTTL),
		token.WithRefreshTTL(cfg.RefreshTTL),
	)
}

func newCatalog(st storage.Storage) *content.Catalog {
	return content.NewCatalog(st)
}

// newHandler собирает сервисы поверх хранилища.
func newHandler(cfg config.Config, st storage.Storage) (http.Handler, error) {
	tokens, err := newTokenService(cfg.Token)
	if err != nil {
		return nil, err
	}

	store := progress.NewStore(st)

	return httpapi.NewRouter(httpapi.Services{
		Users:    st,
		Auth:     auth.NewService(st, tokens, auth.BcryptHasher{}),
		Progress: store,
		Courses:  course.NewTree(st),
		Selector: selector.New(st),
		Quiz:     quiz.NewEngine(st, store),
		Content:  newCatalog(st),
	}), nil
}
