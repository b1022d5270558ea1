package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/letsssgooo/funle/internal/domain/models"
)

// UpdateUserRequest — изменения учётной записи. Пустое поле не меняется.
type UpdateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// ListUsers возвращает всех пользователей.
func (s *Service) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return users, nil
}

// GetUser возвращает пользователя по ID.
func (s *Service) GetUser(ctx context.Context, id string) (*models.User, error) {
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return u, nil
}

// UpdateUser валидирует изменения и применяет их одной атомарной записью.
// Прогресс и дата регистрации не меняются.
func (s *Service) UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*models.User, error) {
	var (
		username, email, hash string
		role                  models.UserRole
		err                   error
	)

	if strings.TrimSpace(req.Username) != "" {
		if username, err = ParseUsername(req.Username); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(req.Email) != "" {
		if email, err = ParseEmail(req.Email); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(req.Role) != "" {
		if role, err = ParseRole(req.Role); err != nil {
			return nil, err
		}
	}
	if req.Password != "" {
		if err = ValidatePassword(req.Password); err != nil {
			return nil, err
		}
		if hash, err = s.hasher.Hash(req.Password); err != nil {
			return nil, err
		}
	}

	err = s.users.UpdateUser(ctx, id, func(u *models.User) error {
		if username != "" {
			u.Username = username
		}
		if email != "" {
			u.Email = email
		}
		if role != "" {
			u.Role = role
		}
		if hash != "" {
			u.HashedPassword = hash
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	slog.Info("user updated", "user", id)

	return s.GetUser(ctx, id)
}

// DeleteUser удаляет пользователя. Его токены перестают проходить проверку.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if err := s.users.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	slog.Info("user deleted", "user", id)

	return nil
}
