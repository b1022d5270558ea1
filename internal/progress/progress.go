package progress

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/letsssgooo/funle/internal/domain/errs"
	"github.com/letsssgooo/funle/internal/domain/models"
	"github.com/letsssgooo/funle/internal/storage"
)

// Store управляет множествами пройденного материала пользователя.
type Store struct {
	users storage.UserRepo
}

// NewStore создаёт Store поверх репозитория пользователей.
func NewStore(users storage.UserRepo) *Store {
	return &Store{users: users}
}

func checkArgs(userID, itemID string) error {
	if userID == "" || itemID == "" {
		return fmt.Errorf("%w: user id and item id are required", errs.ErrInvalidArgument)
	}

	return nil
}

// Add добавляет itemID в множество kind. Для тестов, инфо и узлов
// повторное добавление завершается без записи в хранилище. Запись в курсы
// выполняется всегда, но повтора id не создаёт.
func (s *Store) Add(ctx context.Context, kind models.ProgressKind, userID, itemID string) error {
	if err := checkArgs(userID, itemID); err != nil {
		return err
	}

	err := s.users.UpdateUser(ctx, userID, func(u *models.User) error {
		set, err := u.Progress.Set(kind)
		if err != nil {
			return err
		}

		if slices.Contains(*set, itemID) {
			if kind == models.ProgressCourses {
				return nil
			}
			return storage.ErrSkipWrite
		}
		*set = append(*set, itemID)

		return nil
	})
	if err != nil {
		return fmt.Errorf("add %s %s to user %s: %w", kind, itemID, userID, err)
	}

	slog.Debug("progress added", "user", userID, "kind", kind, "item", itemID)

	return nil
}

// Remove удаляет itemID из множества kind. Отсутствующий id не ошибка.
func (s *Store) Remove(ctx context.Context, kind models.ProgressKind, userID, itemID string) error {
	if err := checkArgs(userID, itemID); err != nil {
		return err
	}

	err := s.users.UpdateUser(ctx, userID, func(u *models.User) error {
		set, err := u.Progress.Set(kind)
		if err != nil {
			return err
		}

		if !slices.Contains(*set, itemID) {
			return storage.ErrSkipWrite
		}
		*set = slices.DeleteFunc(*set, func(id string) bool {
			return id == itemID
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("remove %s %s from user %s: %w", kind, itemID, userID, err)
	}

	slog.Debug("progress removed", "user", userID, "kind", kind, "item", itemID)

	return nil
}

// ReplaceAll заменяет весь прогресс пользователя. Повторы во входных
// данных отбрасываются.
func (s *Store) ReplaceAll(ctx context.Context, userID string, p models.Progress) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", errs.ErrInvalidArgument)
	}

	normalized := p.Normalized()
	err := s.users.UpdateUser(ctx, userID, func(u *models.User) error {
		u.Progress = normalized
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace progress of user %s: %w", userID, err)
	}

	return nil
}

// Get возвращает прогресс пользователя.
func (s *Store) Get(ctx context.Context, userID string) (models.Progress, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return models.Progress{}, fmt.Errorf("get progress of user %s: %w", userID, err)
	}

	return u.Progress.Normalized(), nil
}
