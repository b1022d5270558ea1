package postgres

import (
	"context"
	"fmt"

	"github.com/letsssgooo/funle/internal/domain/errs"
	"github.com/letsssgooo/funle/internal/domain/models"
	"github.com/letsssgooo/funle/internal/storage"
)

// --- Users ---

// CreateUser сохраняет пользователя. Уникальность email обеспечивает индекс.
func (s *Storage) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = storage.NewID()
	}

	return insertDoc(ctx, s, collUsers, u.ID, u)
}

// GetUser возвращает пользователя по ID.
func (s *Storage) GetUser(ctx context.Context, id string) (*models.User, error) {
	return getDoc[models.User](ctx, s, collUsers, id)
}

// GetUserByEmail ищет пользователя по полю email документа.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	found, err := findDocs[models.User](ctx, s, collUsers, map[string]any{"email": email})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("user with email %s: %w", email, errs.ErrNotFound)
	}

	return found[0], nil
}

// ListUsers возвращает всех пользователей.
func (s *Storage) ListUsers(ctx context.Context) ([]*models.User, error) {
	return findDocs[models.User](ctx, s, collUsers, nil)
}

// UpdateUser изменяет пользователя под блокировкой строки.
// Занятый email отклоняет индекс, ошибка приходит как errs.ErrConflict.
func (s *Storage) UpdateUser(ctx context.Context, id string, fn func(u *models.User) error) error {
	return updateDoc(ctx, s, collUsers, id, func(u *models.User) error {
		if err := fn(u); err != nil {
			return err
		}
		u.ID = id
		return nil
	})
}

// DeleteUser удаляет пользователя.
func (s *Storage) DeleteUser(ctx context.Context, id string) error {
	return deleteDoc(ctx, s, collUsers, id)
}

// UserExists проверяет, существует ли пользователь.
func (s *Storage) UserExists(ctx context.Context, id string) (bool, error) {
	query := `
		SELECT EXISTS(SELECT 1 FROM documents WHERE collection = $1 AND id = $2)
	`

	var exists bool
	if err := s.pool.QueryRow(ctx, query, collUsers, id).Scan(&exists); err != nil {
		return false, storageErr("user exists", err)
	}

	return exists, nil
}

// --- Courses ---

// CreateCourse сохраняет курс.
func (s *Storage) CreateCourse(ctx context.Context, c *models.Course) error {
	if c.ID == "" {
		c.ID = storage.NewID()
	}

	return insertDoc(ctx, s, collCourses, c.ID, c)
}

// GetCourse возвращает курс по ID.
func (s *Storage) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	return getDoc[models.Course](ctx, s, collCourses, id)
}

// ListCourses возвращает все курсы.
func (s *Storage) ListCourses(ctx context.Context) ([]*models.Course, error) {
	return findDocs[models.Course](ctx, s, collCourses, nil)
}

// UpdateCourse изменяет курс под блокировкой строки.
func (s *Storage) UpdateCourse(ctx context.Context, id string, fn func(c *models.Course) error) error {
	return updateDoc(ctx, s, collCourses, id, func(c *models.Course) error {
		if err := fn(c); err != nil {
			return err
		}
		c.ID = id
		return nil
	})
}

// DeleteCourse удаляет курс.
func (s *Storage) DeleteCourse(ctx context.Context, id string) error {
	return deleteDoc(ctx, s, collCourses, id)
}

// --- Tests ---

// CreateTest сохраняет тест с выбором ответа.
func (s *Storage) CreateTest(ctx context.Context, t *models.Test) error {
	if t.ID == "" {
		t.ID = storage.NewID()
	}

	return insertDoc(ctx, s, collTests, t.ID, t)
}

// GetTest возвращает тест по ID.
func (s *Storage) GetTest(ctx context.Context, id string) (*models.Test, error) {
	return getDoc[models.Test](ctx, s, collTests, id)
}

// FindTests возвращает тесты уровня level с темой theme.
func (s *Storage) FindTests(ctx context.Context, level int, theme string) ([]*models.Test, error) {
	return findDocs[models.Test](ctx, s, collTests, map[string]any{"level": level, "theme": theme})
}

// UpdateTest изменяет тест под блокировкой строки.
func (s *Storage) UpdateTest(ctx context.Context, id string, fn func(t *models.Test) error) error {
	return updateDoc(ctx, s, collTests, id, func(t *models.Test) error {
		if err := fn(t); err != nil {
			return err
		}
		t.ID = id
		return nil
	})
}

// DeleteTest удаляет тест.
func (s *Storage) DeleteTest(ctx context.Context, id string) error {
	return deleteDoc(ctx, s, collTests, id)
}

// --- Action tests ---

// CreateActionTest сохраняет тест с действиями.
func (s *Storage) CreateActionTest(ctx context.Context, t *models.ActionTest) error {
	if t.ID == "" {
		t.ID = storage.NewID()
	}

	return insertDoc(ctx, s, collActionTests, t.ID, t)
}

// GetActionTest возвращает тест с действиями по ID.
func (s *Storage) GetActionTest(ctx context.Context, id string) (*models.ActionTest, error) {
	return getDoc[models.ActionTest](ctx, s, collActionTests, id)
}

// FindActionTests возвращает тесты с действиями уровня level с темой theme.
func (s *Storage) FindActionTests(ctx context.Context, level int, theme string) ([]*models.ActionTest, error) {
	return findDocs[models.ActionTest](ctx, s, collActionTests, map[string]any{"level": level, "theme": theme})
}

// UpdateActionTest изменяет тест с действиями под блокировкой строки.
func (s *Storage) UpdateActionTest(ctx context.Context, id string, fn func(t *models.ActionTest) error) error {
	return updateDoc(ctx, s, collActionTests, id, func(t *models.ActionTest) error {
		if err := fn(t); err != nil {
			return err
		}
		t.ID = id
		return nil
	})
}

// DeleteActionTest удаляет тест с действиями.
func (s *Storage) DeleteActionTest(ctx context.Context, id string) error {
	return deleteDoc(ctx, s, collActionTests, id)
}

// --- Infos ---

// CreateInfo сохраняет информационный материал.
func (s *Storage) CreateInfo(ctx context.Context, i *models.Info) error {
	if i.ID == "" {
		i.ID = storage.NewID()
	}

	return insertDoc(ctx, s, collInfos, i.ID, i)
}

// GetInfo возвращает материал по ID.
func (s *Storage) GetInfo(ctx context.Context, id string) (*models.Info, error) {
	return getDoc[models.Info](ctx, s, collInfos, id)
}

// ListInfos возвращает все материалы.
func (s *Storage) ListInfos(ctx context.Context) ([]*models.Info, error) {
	return findDocs[models.Info](ctx, s, collInfos, nil)
}

// UpdateInfo изменяет материал под блокировкой строки.
func (s *Storage) UpdateInfo(ctx context.Context, id string, fn func(i *models.Info) error) error {
	return updateDoc(ctx, s, collInfos, id, func(i *models.Info) error {
		if err := fn(i); err != nil {
			return err
		}
		i.ID = id
		return nil
	})
}

// DeleteInfo удаляет материал.
func (s *Storage) DeleteInfo(ctx context.Context, id string) error {
	return deleteDoc(ctx, s, collInfos, id)
}

var _ storage.Storage = (*Storage)(nil)
