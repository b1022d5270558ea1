package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/letsssgooo/funle/internal/domain/errs"
	"github.com/letsssgooo/funle/internal/domain/models"
)

// MemoryStorage реализует Storage в памяти.
// Документы хранятся в виде JSON, поэтому вызывающий код никогда
// не получает ссылку на внутреннее состояние.
type MemoryStorage struct {
	mu          sync.RWMutex
	users       map[string][]byte
	courses     map[string][]byte
	tests       map[string][]byte
	actionTests map[string][]byte
	infos       map[string][]byte
}

// NewMemoryStorage создаёт новый MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:       make(map[string][]byte),
		courses:     make(map[string][]byte),
		tests:       make(map[string][]byte),
		actionTests: make(map[string][]byte),
		infos:       make(map[string][]byte),
	}
}

// Close ничего не делает, нужен для Storage.
func (s *MemoryStorage) Close() error {
	return nil
}

// CheckID проверяет, что идентификатор документа не пустой.
func CheckID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty id", errs.ErrInvalidArgument)
	}

	return nil
}

// NewID генерирует идентификатор нового документа.
func NewID() string {
	return uuid.NewString()
}

func get[T any](table map[string][]byte, name, id string) (*T, error) {
	if err := CheckID(id); err != nil {
		return nil, err
	}

	data, ok := table[id]
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", name, id, errs.ErrNotFound)
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w: %w", name, id, errs.ErrStorage, err)
	}

	return &v, nil
}

func put[T any](table map[string][]byte, name, id string, v *T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w: %w", name, id, errs.ErrStorage, err)
	}
	table[id] = data

	return nil
}

func update[T any](table map[string][]byte, name, id string, fn func(*T) error) error {
	v, err := get[T](table, name, id)
	if err != nil {
		return err
	}

	if err = fn(v); err != nil {
		if errors.Is(err, ErrSkipWrite) {
			return nil
		}
		return err
	}

	return put(table, name, id, v)
}

func remove(table map[string][]byte, name, id string) error {
	if err := CheckID(id); err != nil {
		return err
	}

	if _, ok := table[id]; !ok {
		return fmt.Errorf("%s %s: %w", name, id, errs.ErrNotFound)
	}
	delete(table, id)

	return nil
}

// list возвращает документы, прошедшие фильтр, в порядке ключей.
func list[T any](table map[string][]byte, name string, keep func(*T) bool) ([]*T, error) {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]*T, 0, len(keys))
	for _, k := range keys {
		v, err := get[T](table, name, k)
		if err != nil {
			return nil, err
		}
		if keep == nil || keep(v) {
			out = append(out, v)
		}
	}

	return out, nil
}

// --- Users ---

// CreateUser сохраняет нового пользователя.
func (s *MemoryStorage) CreateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := list(s.users, "user", func(v *models.User) bool {
		return v.Email == u.Email
	})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return fmt.Errorf("user with email %s: %w", u.Email, errs.ErrConflict)
	}

	if u.ID == "" {
		u.ID = NewID()
	}
	if _, ok := s.users[u.ID]; ok {
		return fmt.Errorf("user %s: %w", u.ID, errs.ErrConflict)
	}

	return put(s.users, "user", u.ID, u)
}

// GetUser возвращает пользователя по ID.
func (s *MemoryStorage) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return get[models.User](s.users, "user", id)
}

// GetUserByEmail возвращает пользователя по email.
func (s *MemoryStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found, err := list(s.users, "user", func(v *models.User) bool {
		return v.Email == email
	})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("user with email %s: %w", email, errs.ErrNotFound)
	}

	return found[0], nil
}

// ListUsers возвращает всех пользователей.
func (s *MemoryStorage) ListUsers(ctx context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return list[models.User](s.users, "user", nil)
}

// UpdateUser атомарно изменяет пользователя.
func (s *MemoryStorage) UpdateUser(ctx context.Context, id string, fn func(u *models.User) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return update(s.users, "user", id, func(u *models.User) error {
		oldEmail := u.Email
		if err := fn(u); err != nil {
			return err
		}
		u.ID = id

		if u.Email == oldEmail {
			return nil
		}
		taken, err := list(s.users, "user", func(v *models.User) bool {
			return v.Email == u.Email && v.ID != id
		})
		if err != nil {
			return err
		}
		if len(taken) > 0 {
			return fmt.Errorf("user with email %s: %w", u.Email, errs.ErrConflict)
		}
		return nil
	})
}

// DeleteUser удаляет пользователя.
func (s *MemoryStorage) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return remove(s.users, "user", id)
}

// UserExists проверяет, существует ли пользователь.
func (s *MemoryStorage) UserExists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.users[id]
	return ok, nil
}

// --- Courses ---

// CreateCourse сохраняет курс.
func (s *MemoryStorage) CreateCourse(ctx context.Context, c *models.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = NewID()
	}
	if _, ok := s.courses[c.ID]; ok {
		return fmt.Errorf("course %s: %w", c.ID, errs.ErrConflict)
	}

	return put(s.courses, "course", c.ID, c)
}

// GetCourse возвращает курс по ID.
func (s *MemoryStorage) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return get[models.Course](s.courses, "course", id)
}

// ListCourses возвращает все курсы.
func (s *MemoryStorage) ListCourses(ctx context.Context) ([]*models.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return list[models.Course](s.courses, "course", nil)
}

// UpdateCourse атомарно изменяет курс.
func (s *MemoryStorage) UpdateCourse(ctx context.Context, id string, fn func(c *models.Course) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return update(s.courses, "course", id, fn)
}

// DeleteCourse удаляет курс.
func (s *MemoryStorage) DeleteCourse(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return remove(s.courses, "course", id)
}

// --- Tests ---

// CreateTest сохраняет тест с выбором ответа.
func (s *MemoryStorage) CreateTest(ctx context.Context, t *models.Test) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = NewID()
	}
	if _, ok := s.tests[t.ID]; ok {
		return fmt.Errorf("test %s: %w", t.ID, errs.ErrConflict)
	}

	return put(s.tests, "test", t.ID, t)
}

// GetTest возвращает тест по ID.
func (s *MemoryStorage) GetTest(ctx context.Context, id string) (*models.Test, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return get[models.Test](s.tests, "test", id)
}

// FindTests возвращает тесты уровня level с темой theme.
func (s *MemoryStorage) FindTests(ctx context.Context, level int, theme string) ([]*models.Test, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return list(s.tests, "test", func(t *models.Test) bool {
		return t.Level == level && t.Theme == theme
	})
}

// UpdateTest атомарно изменяет тест.
func (s *MemoryStorage) UpdateTest(ctx context.Context, id string, fn func(t *models.Test) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return update(s.tests, "test", id, func(t *models.Test) error {
		if err := fn(t); err != nil {
			return err
		}
		t.ID = id
		return nil
	})
}

// DeleteTest удаляет тест.
func (s *MemoryStorage) DeleteTest(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return remove(s.tests, "test", id)
}

// --- Action tests ---

// CreateActionTest сохраняет тест с действиями.
func (s *MemoryStorage) CreateActionTest(ctx context.Context, t *models.ActionTest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = NewID()
	}
	if _, ok := s.actionTests[t.ID]; ok {
		return fmt.Errorf("action test %s: %w", t.ID, errs.ErrConflict)
	}

	return put(s.actionTests, "action test", t.ID, t)
}

// GetActionTest возвращает тест с действиями по ID.
func (s *MemoryStorage) GetActionTest(ctx context.Context, id string) (*models.ActionTest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return get[models.ActionTest](s.actionTests, "action test", id)
}

// FindActionTests возвращает тесты с действиями уровня level с темой theme.
func (s *MemoryStorage) FindActionTests(ctx context.Context, level int, theme string) ([]*models.ActionTest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return list(s.actionTests, "action test", func(t *models.ActionTest) bool {
		return t.Level == level && t.Theme == theme
	})
}

// UpdateActionTest атомарно изменяет тест с действиями.
func (s *MemoryStorage) UpdateActionTest(ctx context.Context, id string, fn func(t *models.ActionTest) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return update(s.actionTests, "action test", id, func(t *models.ActionTest) error {
		if err := fn(t); err != nil {
			return err
		}
		t.ID = id
		return nil
	})
}

// DeleteActionTest удаляет тест с действиями.
func (s *MemoryStorage) DeleteActionTest(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return remove(s.actionTests, "action test", id)
}

// --- Infos ---

// CreateInfo сохраняет информационный материал.
func (s *MemoryStorage) CreateInfo(ctx context.Context, i *models.Info) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i.ID == "" {
		i.ID = NewID()
	}
	if _, ok := s.infos[i.ID]; ok {
		return fmt.Errorf("info %s: %w", i.ID, errs.ErrConflict)
	}

	return put(s.infos, "info", i.ID, i)
}

// GetInfo возвращает материал по ID.
func (s *MemoryStorage) GetInfo(ctx context.Context, id string) (*models.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return get[models.Info](s.infos, "info", id)
}

// ListInfos возвращает все материалы.
func (s *MemoryStorage) ListInfos(ctx context.Context) ([]*models.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return list[models.Info](s.infos, "info", nil)
}

// UpdateInfo атомарно изменяет материал.
func (s *MemoryStorage) UpdateInfo(ctx context.Context, id string, fn func(i *models.Info) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return update(s.infos, "info", id, func(i *models.Info) error {
		if err := fn(i); err != nil {
			return err
		}
		i.ID = id
		return nil
	})
}

// DeleteInfo удаляет материал.
func (s *MemoryStorage) DeleteInfo(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return remove(s.infos, "info", id)
}

var _ Storage = (*MemoryStorage)(nil)
