package bolt

import (
	"context"
	"errors"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/letsssgooo/funle/internal/domain/errs"
	"github.com/letsssgooo/funle/internal/domain/models"
	"github.com/letsssgooo/funle/internal/storage"
)

// --- Users ---

// CreateUser сохраняет пользователя и индекс email -> id в одной транзакции.
func (s *Storage) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = storage.NewID()
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		emails := tx.Bucket(bucketUserEmails)
		if emails.Get([]byte(u.Email)) != nil {
			return fmt.Errorf("user with email %s: %w", u.Email, errs.ErrConflict)
		}
		if tx.Bucket(bucketUsers).Get([]byte(u.ID)) != nil {
			return fmt.Errorf("user %s: %w", u.ID, errs.ErrConflict)
		}

		if err := emails.Put([]byte(u.Email), []byte(u.ID)); err != nil {
			return err
		}
		return putDoc(tx, bucketUsers, "user", u.ID, u)
	})

	return wrap("create user", err)
}

// GetUser возвращает пользователя по ID.
func (s *Storage) GetUser(ctx context.Context, id string) (*models.User, error) {
	return loadDoc[models.User](s, bucketUsers, "user", id)
}

// GetUserByEmail возвращает пользователя по email через индекс.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var out *models.User
	err := s.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(bucketUserEmails).Get([]byte(email))
		if id == nil {
			return fmt.Errorf("user with email %s: %w", email, errs.ErrNotFound)
		}

		var err error
		out, err = getDoc[models.User](tx, bucketUsers, "user", string(id))
		return err
	})
	if err != nil {
		return nil, wrap("get user by email", err)
	}

	return out, nil
}

// ListUsers возвращает всех пользователей.
func (s *Storage) ListUsers(ctx context.Context) ([]*models.User, error) {
	return listDocs[models.User](s, bucketUsers, "user", nil)
}

// UpdateUser атомарно изменяет пользователя. Смена email переносит индекс
// в той же транзакции.
func (s *Storage) UpdateUser(ctx context.Context, id string, fn func(u *models.User) error) error {
	var fnErr error
	err := s.db.Update(func(tx *bbolt.Tx) error {
		u, err := getDoc[models.User](tx, bucketUsers, "user", id)
		if err != nil {
			return err
		}

		oldEmail := u.Email
		if fnErr = fn(u); fnErr != nil {
			return fnErr
		}
		u.ID = id

		if u.Email != oldEmail {
			emails := tx.Bucket(bucketUserEmails)
			if emails.Get([]byte(u.Email)) != nil {
				return fmt.Errorf("user with email %s: %w", u.Email, errs.ErrConflict)
			}
			if err = emails.Delete([]byte(oldEmail)); err != nil {
				return err
			}
			if err = emails.Put([]byte(u.Email), []byte(id)); err != nil {
				return err
			}
		}

		return putDoc(tx, bucketUsers, "user", id, u)
	})
	if fnErr != nil {
		if errors.Is(fnErr, storage.ErrSkipWrite) {
			return nil
		}
		return fnErr
	}

	return wrap("update user", err)
}

// DeleteUser удаляет пользователя и его запись в индексе email.
func (s *Storage) DeleteUser(ctx context.Context, id string) error {
	if err := storage.CheckID(id); err != nil {
		return err
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		u, err := getDoc[models.User](tx, bucketUsers, "user", id)
		if err != nil {
			return err
		}
		if err = tx.Bucket(bucketUserEmails).Delete([]byte(u.Email)); err != nil {
			return err
		}
		return tx.Bucket(bucketUsers).Delete([]byte(id))
	})

	return wrap("delete user", err)
}

// UserExists проверяет, существует ли пользователь.
func (s *Storage) UserExists(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}

	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(bucketUsers).Get([]byte(id)) != nil
		return nil
	})

	return found, wrap("user exists", err)
}

// --- Courses ---

// CreateCourse сохраняет курс.
func (s *Storage) CreateCourse(ctx context.Context, c *models.Course) error {
	if c.ID == "" {
		c.ID = storage.NewID()
	}

	return insertDoc(s, bucketCourses, "course", c.ID, c)
}

// GetCourse возвращает курс по ID.
func (s *Storage) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	return loadDoc[models.Course](s, bucketCourses, "course", id)
}

// ListCourses возвращает все курсы.
func (s *Storage) ListCourses(ctx context.Context) ([]*models.Course, error) {
	return listDocs[models.Course](s, bucketCourses, "course", nil)
}

// UpdateCourse атомарно изменяет курс внутри одной транзакции bbolt.
func (s *Storage) UpdateCourse(ctx context.Context, id string, fn func(c *models.Course) error) error {
	return updateDoc(s, bucketCourses, "course", id, func(c *models.Course) error {
		if err := fn(c); err != nil {
			return err
		}
		c.ID = id
		return nil
	})
}

// DeleteCourse удаляет курс.
func (s *Storage) DeleteCourse(ctx context.Context, id string) error {
	return deleteDoc(s, bucketCourses, "course", id)
}

// --- Tests ---

// CreateTest сохраняет тест с выбором ответа.
func (s *Storage) CreateTest(ctx context.Context, t *models.Test) error {
	if t.ID == "" {
		t.ID = storage.NewID()
	}

	return insertDoc(s, bucketTests, "test", t.ID, t)
}

// GetTest возвращает тест по ID.
func (s *Storage) GetTest(ctx context.Context, id string) (*models.Test, error) {
	return loadDoc[models.Test](s, bucketTests, "test", id)
}

// FindTests возвращает тесты уровня level с темой theme.
func (s *Storage) FindTests(ctx context.Context, level int, theme string) ([]*models.Test, error) {
	return listDocs(s, bucketTests, "test", func(t *models.Test) bool {
		return t.Level == level && t.Theme == theme
	})
}

// UpdateTest атомарно изменяет тест внутри одной транзакции bbolt.
func (s *Storage) UpdateTest(ctx context.Context, id string, fn func(t *models.Test) error) error {
	return updateDoc(s, bucketTests, "test", id, func(t *models.Test) error {
		if err := fn(t); err != nil {
			return err
		}
		t.ID = id
		return nil
	})
}

// DeleteTest удаляет тест.
func (s *Storage) DeleteTest(ctx context.Context, id string) error {
	return deleteDoc(s, bucketTests, "test", id)
}

// --- Action tests ---

// CreateActionTest сохраняет тест с действиями.
func (s *Storage) CreateActionTest(ctx context.Context, t *models.ActionTest) error {
	if t.ID == "" {
		t.ID = storage.NewID()
	}

	return insertDoc(s, bucketActionTests, "action test", t.ID, t)
}

// GetActionTest возвращает тест с действиями по ID.
func (s *Storage) GetActionTest(ctx context.Context, id string) (*models.ActionTest, error) {
	return loadDoc[models.ActionTest](s, bucketActionTests, "action test", id)
}

// FindActionTests возвращает тесты с действиями уровня level с темой theme.
func (s *Storage) FindActionTests(ctx context.Context, level int, theme string) ([]*models.ActionTest, error) {
	return listDocs(s, bucketActionTests, "action test", func(t *models.ActionTest) bool {
		return t.Level == level && t.Theme == theme
	})
}

// UpdateActionTest атомарно изменяет тест с действиями.
func (s *Storage) UpdateActionTest(ctx context.Context, id string, fn func(t *models.ActionTest) error) error {
	return updateDoc(s, bucketActionTests, "action test", id, func(t *models.ActionTest) error {
		if err := fn(t); err != nil {
			return err
		}
		t.ID = id
		return nil
	})
}

// DeleteActionTest удаляет тест с действиями.
func (s *Storage) DeleteActionTest(ctx context.Context, id string) error {
	return deleteDoc(s, bucketActionTests, "action test", id)
}

// --- Infos ---

// CreateInfo сохраняет информационный материал.
func (s *Storage) CreateInfo(ctx context.Context, i *models.Info) error {
	if i.ID == "" {
		i.ID = storage.NewID()
	}

	return insertDoc(s, bucketInfos, "info", i.ID, i)
}

// GetInfo возвращает материал по ID.
func (s *Storage) GetInfo(ctx context.Context, id string) (*models.Info, error) {
	return loadDoc[models.Info](s, bucketInfos, "info", id)
}

// ListInfos возвращает все материалы.
func (s *Storage) ListInfos(ctx context.Context) ([]*models.Info, error) {
	return listDocs[models.Info](s, bucketInfos, "info", nil)
}

// UpdateInfo атомарно изменяет материал.
func (s *Storage) UpdateInfo(ctx context.Context, id string, fn func(i *models.Info) error) error {
	return updateDoc(s, bucketInfos, "info", id, func(i *models.Info) error {
		if err := fn(i); err != nil {
			return err
		}
		i.ID = id
		return nil
	})
}

// DeleteInfo удаляет материал.
func (s *Storage) DeleteInfo(ctx context.Context, id string) error {
	return deleteDoc(s, bucketInfos, "info", id)
}

var _ storage.Storage = (*Storage)(nil)
