package content

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"

	"github.com/letsssgooo/funle/internal/domain/errs"
	"github.com/letsssgooo/funle/internal/domain/models"
	"github.com/letsssgooo/funle/internal/storage"
)

// Repos — репозитории контента.
type Repos interface {
	storage.TestRepo
	storage.ActionTestRepo
	storage.InfoRepo
}

// Catalog хранит тесты и информационные материалы.
type Catalog struct {
	repos Repos
	md    goldmark.Markdown
	now   func() time.Time
}

// NewCatalog создаёт Catalog.
func NewCatalog(repos Repos) *Catalog {
	// Инициализируем Markdown парсер с подсветкой кода.
	// В отличие от страниц курса, сырой HTML в материалах не пропускаем.
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle("monokai"),
			),
		),
	)

	return &Catalog{repos: repos, md: md, now: time.Now}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errs.ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func validateLevelTheme(level int, theme string) error {
	if level < 1 {
		return invalid("level must be at least 1, got %d", level)
	}
	if strings.TrimSpace(theme) == "" {
		return invalid("theme is required")
	}

	return nil
}

// ValidateTest проверяет тест с выбором ответа.
func ValidateTest(t *models.Test) error {
	if err := validateLevelTheme(t.Level, t.Theme); err != nil {
		return err
	}
	if strings.TrimSpace(t.Question) == "" {
		return invalid("question is required")
	}
	if len(t.Answers) < 2 {
		return invalid("amount of answers must be at least two")
	}
	if !slices.Contains(t.Answers, t.CorrectAnswer) {
		return invalid("correct answer %q is not among answers", t.CorrectAnswer)
	}

	return nil
}

// ValidateActionTest проверяет тест с действиями.
func ValidateActionTest(t *models.ActionTest) error {
	if err := validateLevelTheme(t.Level, t.Theme); err != nil {
		return err
	}
	if strings.TrimSpace(t.Example) == "" {
		return invalid("example is required")
	}
	if len(t.Actions) == 0 {
		return invalid("need at least one action")
	}
	if strings.TrimSpace(t.Answer) == "" {
		return invalid("answer is required")
	}

	return nil
}

// ValidateInfo проверяет информационный материал.
func ValidateInfo(i *models.Info) error {
	if err := validateLevelTheme(i.Level, i.Theme); err != nil {
		return err
	}
	if strings.TrimSpace(i.Title) == "" {
		return invalid("title is required")
	}
	for n, b := range i.Content {
		if b.Level < 1 {
			return invalid("level of block %d must be at least 1", n)
		}
	}

	return nil
}

// CreateTest сохраняет тест с выбором ответа.
func (c *Catalog) CreateTest(ctx context.Context, t *models.Test) error {
	if err := ValidateTest(t); err != nil {
		return err
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = c.now().UTC()
	}

	if err := c.repos.CreateTest(ctx, t); err != nil {
		return fmt.Errorf("create test: %w", err)
	}

	slog.Debug("test created", "test", t.ID, "level", t.Level, "theme", t.Theme)

	return nil
}

// GetTest возвращает тест с выбором ответа.
func (c *Catalog) GetTest(ctx context.Context, id string) (*models.Test, error) {
	t, err := c.repos.GetTest(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get test: %w", err)
	}

	return t, nil
}

// UpdateTest заменяет содержимое теста. ID и дата создания сохраняются.
func (c *Catalog) UpdateTest(ctx context.Context, id string, t *models.Test) error {
	if err := ValidateTest(t); err != nil {
		return err
	}

	err := c.repos.UpdateTest(ctx, id, func(cur *models.Test) error {
		created := cur.CreatedAt
		*cur = *t
		cur.CreatedAt = created
		return nil
	})
	if err != nil {
		return fmt.Errorf("update test: %w", err)
	}

	t.ID = id
	slog.Debug("test updated", "test", id)

	return nil
}

// DeleteTest удаляет тест с выбором ответа.
func (c *Catalog) DeleteTest(ctx context.Context, id string) error {
	if err := c.repos.DeleteTest(ctx, id); err != nil {
		return fmt.Errorf("delete test: %w", err)
	}

	return nil
}

// CreateActionTest сохраняет тест с действиями.
func (c *Catalog) CreateActionTest(ctx context.Context, t *models.ActionTest) error {
	if err := ValidateActionTest(t); err != nil {
		return err
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = c.now().UTC()
	}

	if err := c.repos.CreateActionTest(ctx, t); err != nil {
		return fmt.Errorf("create action test: %w", err)
	}

	slog.Debug("action test created", "test", t.ID, "level", t.Level, "theme", t.Theme)

	return nil
}

// GetActionTest возвращает тест с действиями.
func (c *Catalog) GetActionTest(ctx context.Context, id string) (*models.ActionTest, error) {
	t, err := c.repos.GetActionTest(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get action test: %w", err)
	}

	return t, nil
}

// UpdateActionTest заменяет содержимое теста с действиями.
func (c *Catalog) UpdateActionTest(ctx context.Context, id string, t *models.ActionTest) error {
	if err := ValidateActionTest(t); err != nil {
		return err
	}

	err := c.repos.UpdateActionTest(ctx, id, func(cur *models.ActionTest) error {
		created := cur.CreatedAt
		*cur = *t
		cur.CreatedAt = created
		return nil
	})
	if err != nil {
		return fmt.Errorf("update action test: %w", err)
	}

	t.ID = id
	slog.Debug("action test updated", "test", id)

	return nil
}

// DeleteActionTest удаляет тест с действиями.
func (c *Catalog) DeleteActionTest(ctx context.Context, id string) error {
	if err := c.repos.DeleteActionTest(ctx, id); err != nil {
		return fmt.Errorf("delete action test: %w", err)
	}

	return nil
}

// CreateInfo сохраняет материал.
func (c *Catalog) CreateInfo(ctx context.Context, i *models.Info) error {
	if err := ValidateInfo(i); err != nil {
		return err
	}
	if i.CreatedAt.IsZero() {
		i.CreatedAt = c.now().UTC()
	}

	if err := c.repos.CreateInfo(ctx, i); err != nil {
		return fmt.Errorf("create info: %w", err)
	}

	slog.Debug("info created", "info", i.ID, "level", i.Level, "theme", i.Theme)

	return nil
}

// GetInfo возвращает материал.
func (c *Catalog) GetInfo(ctx context.Context, id string) (*models.Info, error) {
	i, err := c.repos.GetInfo(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get info: %w", err)
	}

	return i, nil
}

// ListInfos возвращает все материалы.
func (c *Catalog) ListInfos(ctx context.Context) ([]*models.Info, error) {
	infos, err := c.repos.ListInfos(ctx)
	if err != nil {
		return nil, fmt.Errorf("list infos: %w", err)
	}

	return infos, nil
}

// UpdateInfo заменяет заголовок, блоки, уровень и тему материала.
func (c *Catalog) UpdateInfo(ctx context.Context, id string, i *models.Info) error {
	if err := ValidateInfo(i); err != nil {
		return err
	}

	err := c.repos.UpdateInfo(ctx, id, func(cur *models.Info) error {
		created := cur.CreatedAt
		*cur = *i
		cur.CreatedAt = created
		return nil
	})
	if err != nil {
		return fmt.Errorf("update info: %w", err)
	}

	i.ID = id
	slog.Debug("info updated", "info", id)

	return nil
}

// DeleteInfo удаляет материал.
func (c *Catalog) DeleteInfo(ctx context.Context, id string) error {
	if err := c.repos.DeleteInfo(ctx, id); err != nil {
		return fmt.Errorf("delete info: %w", err)
	}

	return nil
}

// RenderInfo отдаёт HTML материала: блоки уровня не выше level
// в исходном порядке.
func (c *Catalog) RenderInfo(ctx context.Context, id string, level int) (string, error) {
	if level < 1 {
		return "", invalid("level must be at least 1, got %d", level)
	}

	info, err := c.GetInfo(ctx, id)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	for _, b := range info.Content {
		if b.Level > level {
			continue
		}
		if err = c.md.Convert([]byte(b.Body), &buf); err != nil {
			return "", fmt.Errorf("render info %s: %w", id, err)
		}
	}

	return buf.String(), nil
}
