package storage

import (
	"context"
	"errors"

	"github.com/letsssgooo/funle/internal/domain/models"
)

// ErrSkipWrite возвращается функцией обновления, когда документ не изменился.
// Update* в этом случае завершается без записи и без ошибки.
var ErrSkipWrite = errors.New("skip write")

// UserRepo определяет интерфейс для хранения пользователей.
type UserRepo interface {
	// CreateUser сохраняет нового пользователя. Пустой ID заполняется.
	// Повторный email возвращает errs.ErrConflict.
	CreateUser(ctx context.Context, u *models.User) error

	// GetUser возвращает пользователя по ID.
	GetUser(ctx context.Context, id string) (*models.User, error)

	// GetUserByEmail возвращает пользователя по email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// ListUsers возвращает всех пользователей.
	ListUsers(ctx context.Context) ([]*models.User, error)

	// UpdateUser атомарно читает, изменяет и сохраняет пользователя.
	UpdateUser(ctx context.Context, id string, fn func(u *models.User) error) error

	// DeleteUser удаляет пользователя.
	DeleteUser(ctx context.Context, id string) error

	// UserExists проверяет, существует ли пользователь.
	UserExists(ctx context.Context, id string) (bool, error)
}

// CourseRepo определяет интерфейс для хранения курсов.
type CourseRepo interface {
	// CreateCourse сохраняет курс. Пустой ID заполняется.
	CreateCourse(ctx context.Context, c *models.Course) error

	// GetCourse возвращает курс по ID.
	GetCourse(ctx context.Context, id string) (*models.Course, error)

	// ListCourses возвращает все курсы.
	ListCourses(ctx context.Context) ([]*models.Course, error)

	// UpdateCourse атомарно читает, изменяет и сохраняет курс.
	UpdateCourse(ctx context.Context, id string, fn func(c *models.Course) error) error

	// DeleteCourse удаляет курс.
	DeleteCourse(ctx context.Context, id string) error
}

// TestRepo определяет интерфейс для хранения тестов с выбором ответа.
type TestRepo interface {
	CreateTest(ctx context.Context, t *models.Test) error
	GetTest(ctx context.Context, id string) (*models.Test, error)
	// FindTests возвращает тесты с заданными уровнем и темой.
	FindTests(ctx context.Context, level int, theme string) ([]*models.Test, error)
	// UpdateTest атомарно читает, изменяет и сохраняет тест.
	UpdateTest(ctx context.Context, id string, fn func(t *models.Test) error) error
	DeleteTest(ctx context.Context, id string) error
}

// ActionTestRepo определяет интерфейс для хранения тестов с действиями.
type ActionTestRepo interface {
	CreateActionTest(ctx context.Context, t *models.ActionTest) error
	GetActionTest(ctx context.Context, id string) (*models.ActionTest, error)
	// FindActionTests возвращает тесты с заданными уровнем и темой.
	FindActionTests(ctx context.Context, level int, theme string) ([]*models.ActionTest, error)
	UpdateActionTest(ctx context.Context, id string, fn func(t *models.ActionTest) error) error
	DeleteActionTest(ctx context.Context, id string) error
}

// InfoRepo определяет интерфейс для хранения информационных материалов.
type InfoRepo interface {
	CreateInfo(ctx context.Context, i *models.Info) error
	GetInfo(ctx context.Context, id string) (*models.Info, error)
	ListInfos(ctx context.Context) ([]*models.Info, error)
	UpdateInfo(ctx context.Context, id string, fn func(i *models.Info) error) error
	DeleteInfo(ctx context.Context, id string) error
}

// Storage объединяет все репозитории одного хранилища.
type Storage interface {
	UserRepo
	CourseRepo
	TestRepo
	ActionTestRepo
	InfoRepo

	Close() error
}
