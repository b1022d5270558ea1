package models

import (
	"fmt"
	"slices"
	"time"

	"github.com/letsssgooo/funle/internal/domain/errs"
)

// Файл для работы с моделями, которые хранятся в репозиториях.
// Сервисы создают экземпляры моделей, заполняют их данными и
// передают в соответствующий репозиторий.

// UserRole — роль пользователя.
type UserRole string

const (
	RoleUser    UserRole = "User"
	RoleStudent UserRole = "Student"
	RoleTeacher UserRole = "Teacher"
)

// ParseUserRole преобразует строку в роль. Неизвестные значения отклоняются.
func ParseUserRole(s string) (UserRole, error) {
	switch r := UserRole(s); r {
	case RoleUser, RoleStudent, RoleTeacher:
		return r, nil
	}

	return "", fmt.Errorf("%w: unknown role %q", errs.ErrInvalidArgument, s)
}

// MarshalText реализует encoding.TextMarshaler.
func (r UserRole) MarshalText() ([]byte, error) {
	if _, err := ParseUserRole(string(r)); err != nil {
		return nil, err
	}

	return []byte(r), nil
}

// UnmarshalText реализует encoding.TextUnmarshaler.
func (r *UserRole) UnmarshalText(text []byte) error {
	role, err := ParseUserRole(string(text))
	if err != nil {
		return err
	}
	*r = role

	return nil
}

// User определяет модель пользователя
type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"hashed_password"`
	Role           UserRole  `json:"role"`
	Progress       Progress  `json:"progress"`
	CreatedAt      time.Time `json:"created_at"`
}

// ProgressKind — имя одного из множеств прогресса.
type ProgressKind string

const (
	ProgressCourses ProgressKind = "courses"
	ProgressTests   ProgressKind = "tests"
	ProgressInfos   ProgressKind = "infos"
	ProgressNodes   ProgressKind = "nodes"
)

// ParseProgressKind преобразует строку в ProgressKind.
func ParseProgressKind(s string) (ProgressKind, error) {
	switch k := ProgressKind(s); k {
	case ProgressCourses, ProgressTests, ProgressInfos, ProgressNodes:
		return k, nil
	}

	return "", fmt.Errorf("%w: unknown progress kind %q", errs.ErrInvalidArgument, s)
}

// Progress хранит пройденные пользователем курсы, тесты, инфо и узлы.
// Порядок элементов не важен, повторов нет.
type Progress struct {
	Courses []string `json:"courses"`
	Tests   []string `json:"tests"`
	Infos   []string `json:"infos"`
	Nodes   []string `json:"nodes"`
}

// NewProgress возвращает пустой прогресс для нового пользователя.
func NewProgress() Progress {
	return Progress{
		Courses: []string{},
		Tests:   []string{},
		Infos:   []string{},
		Nodes:   []string{},
	}
}

// Set возвращает указатель на множество нужного вида.
func (p *Progress) Set(kind ProgressKind) (*[]string, error) {
	switch kind {
	case ProgressCourses:
		return &p.Courses, nil
	case ProgressTests:
		return &p.Tests, nil
	case ProgressInfos:
		return &p.Infos, nil
	case ProgressNodes:
		return &p.Nodes, nil
	}

	return nil, fmt.Errorf("%w: unknown progress kind %q", errs.ErrInvalidArgument, kind)
}

// Has сообщает, есть ли id в множестве kind.
func (p *Progress) Has(kind ProgressKind, id string) bool {
	set, err := p.Set(kind)
	if err != nil {
		return false
	}

	return slices.Contains(*set, id)
}

// Normalized возвращает копию прогресса без повторов и без nil-срезов.
func (p Progress) Normalized() Progress {
	return Progress{
		Courses: dedup(p.Courses),
		Tests:   dedup(p.Tests),
		Infos:   dedup(p.Infos),
		Nodes:   dedup(p.Nodes),
	}
}

func dedup(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}

	return out
}
