package course

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/letsssgooo/funle/internal/domain/errs"
	"github.com/letsssgooo/funle/internal/domain/models"
	"github.com/letsssgooo/funle/internal/storage"
)

// Tree управляет курсами и ячейками их уровней.
// Все изменения уровней выполняются внутри атомарного UpdateCourse,
// поэтому параллельные правки разных уровней не теряются.
type Tree struct {
	courses storage.CourseRepo
	now     func() time.Time
}

// NewTree создаёт Tree поверх репозитория курсов.
func NewTree(courses storage.CourseRepo) *Tree {
	return &Tree{courses: courses, now: time.Now}
}

// Create создаёт пустой курс.
func (t *Tree) Create(ctx context.Context, title, description string) (*models.Course, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: course title is required", errs.ErrInvalidArgument)
	}

	c := &models.Course{
		Title:       title,
		Description: description,
		Levels:      models.Levels{},
		CreatedAt:   t.now().UTC(),
	}
	if err := t.courses.CreateCourse(ctx, c); err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}

	slog.Debug("course created", "course", c.ID)

	return c, nil
}

// Get возвращает курс по id.
func (t *Tree) Get(ctx context.Context, courseID string) (*models.Course, error) {
	c, err := t.courses.GetCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}

	return c, nil
}

// List возвращает все курсы.
func (t *Tree) List(ctx context.Context) ([]*models.Course, error) {
	cs, err := t.courses.ListCourses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}

	return cs, nil
}

// UpdateDetails меняет название и описание курса.
func (t *Tree) UpdateDetails(ctx context.Context, courseID, title, description string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("%w: course title is required", errs.ErrInvalidArgument)
	}

	err := t.courses.UpdateCourse(ctx, courseID, func(c *models.Course) error {
		c.Title = title
		c.Description = description
		return nil
	})
	if err != nil {
		return fmt.Errorf("update course %s: %w", courseID, err)
	}

	return nil
}

// Delete удаляет курс.
func (t *Tree) Delete(ctx context.Context, courseID string) error {
	if err := t.courses.DeleteCourse(ctx, courseID); err != nil {
		return fmt.Errorf("delete course %s: %w", courseID, err)
	}

	slog.Debug("course deleted", "course", courseID)

	return nil
}

func validateCell(cell models.LevelCell) error {
	if !cell.Kind.Valid() {
		return fmt.Errorf("%w: unknown cell type %q", errs.ErrInvalidArgument, cell.Kind)
	}
	if len(cell.ContentIDs) == 0 {
		return fmt.Errorf("%w: cell must reference content", errs.ErrInvalidArgument)
	}
	if cell.TestsCount != nil && *cell.TestsCount < 0 {
		return fmt.Errorf("%w: negative tests count", errs.ErrInvalidArgument)
	}

	return nil
}

func cellNotFound(courseID string, level int, cellID string) error {
	return fmt.Errorf("cell %s in level %d of course %s: %w", cellID, level, courseID, errs.ErrNotFound)
}

// AddCell добавляет ячейку в конец уровня. Уровень создаётся, если его нет.
// Ячейке присваивается новый id.
func (t *Tree) AddCell(ctx context.Context, courseID string, level int, cell models.LevelCell) (models.LevelCell, error) {
	if err := validateCell(cell); err != nil {
		return models.LevelCell{}, err
	}
	cell.ID = storage.NewID()

	err := t.courses.UpdateCourse(ctx, courseID, func(c *models.Course) error {
		if c.Levels == nil {
			c.Levels = models.Levels{}
		}
		c.Levels.Append(level, cell)
		return nil
	})
	if err != nil {
		return models.LevelCell{}, fmt.Errorf("add cell to course %s: %w", courseID, err)
	}

	slog.Debug("cell added", "course", courseID, "level", level, "cell", cell.ID)

	return cell, nil
}

// RemoveCell удаляет ячейку. Опустевший уровень удаляется.
func (t *Tree) RemoveCell(ctx context.Context, courseID string, level int, cellID string) error {
	err := t.courses.UpdateCourse(ctx, courseID, func(c *models.Course) error {
		if !c.Levels.Remove(level, cellID) {
			return cellNotFound(courseID, level, cellID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove cell: %w", err)
	}

	slog.Debug("cell removed", "course", courseID, "level", level, "cell", cellID)

	return nil
}

// UpdateCell заменяет ячейку на месте, сохраняя позицию и id.
func (t *Tree) UpdateCell(ctx context.Context, courseID string, level int, cellID string, cell models.LevelCell) (models.LevelCell, error) {
	if err := validateCell(cell); err != nil {
		return models.LevelCell{}, err
	}
	cell.ID = cellID

	err := t.courses.UpdateCourse(ctx, courseID, func(c *models.Course) error {
		if !c.Levels.Replace(level, cellID, cell) {
			return cellNotFound(courseID, level, cellID)
		}
		return nil
	})
	if err != nil {
		return models.LevelCell{}, fmt.Errorf("update cell: %w", err)
	}

	return cell, nil
}

// GetCell возвращает ячейку уровня.
func (t *Tree) GetCell(ctx context.Context, courseID string, level int, cellID string) (models.LevelCell, error) {
	c, err := t.courses.GetCourse(ctx, courseID)
	if err != nil {
		return models.LevelCell{}, fmt.Errorf("get cell: %w", err)
	}

	cell, ok := c.Levels.Find(level, cellID)
	if !ok {
		return models.LevelCell{}, cellNotFound(courseID, level, cellID)
	}

	return cell, nil
}
