package content

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/letsssgooo/funle/internal/domain/errs"
	"github.com/letsssgooo/funle/internal/domain/models"
)

// Bundle — набор контента для загрузки из YAML файла.
type Bundle struct {
	Tests []struct {
		ID            string   `yaml:"id"`
		Question      string   `yaml:"question"`
		Answers       []string `yaml:"answers"`
		CorrectAnswer string   `yaml:"correct_answer"`
		Level         int      `yaml:"level"`
		Theme         string   `yaml:"theme"`
	} `yaml:"tests"`
	ActionTests []struct {
		ID      string   `yaml:"id"`
		Example string   `yaml:"example"`
		Actions []string `yaml:"actions"`
		Answer  string   `yaml:"answer"`
		Level   int      `yaml:"level"`
		Theme   string   `yaml:"theme"`
	} `yaml:"action_tests"`
	Infos []struct {
		ID     string `yaml:"id"`
		Title  string `yaml:"title"`
		Level  int    `yaml:"level"`
		Theme  string `yaml:"theme"`
		Blocks []struct {
			Level int    `yaml:"level"`
			Body  string `yaml:"body"`
		} `yaml:"blocks"`
	} `yaml:"infos"`
}

// ImportStats — сколько документов создано.
type ImportStats struct {
	Tests       int
	ActionTests int
	Infos       int
}

// Import загружает YAML набор. Весь набор проверяется до первой записи:
// поля документов, повторы ID внутри набора и ID, уже занятые в хранилище.
func (c *Catalog) Import(ctx context.Context, r io.Reader) (ImportStats, error) {
	var b Bundle
	if err := yaml.NewDecoder(r).Decode(&b); err != nil {
		return ImportStats{}, invalid("decode bundle: %v", err)
	}

	tests := make([]*models.Test, 0, len(b.Tests))
	for n, t := range b.Tests {
		m := &models.Test{
			ID:            t.ID,
			Question:      t.Question,
			Answers:       t.Answers,
			CorrectAnswer: t.CorrectAnswer,
			Level:         t.Level,
			Theme:         t.Theme,
		}
		if err := ValidateTest(m); err != nil {
			return ImportStats{}, fmt.Errorf("test %d: %w", n, err)
		}
		tests = append(tests, m)
	}

	actions := make([]*models.ActionTest, 0, len(b.ActionTests))
	for n, t := range b.ActionTests {
		m := &models.ActionTest{
			ID:      t.ID,
			Example: t.Example,
			Actions: t.Actions,
			Answer:  t.Answer,
			Level:   t.Level,
			Theme:   t.Theme,
		}
		if err := ValidateActionTest(m); err != nil {
			return ImportStats{}, fmt.Errorf("action test %d: %w", n, err)
		}
		actions = append(actions, m)
	}

	infos := make([]*models.Info, 0, len(b.Infos))
	for n, i := range b.Infos {
		m := &models.Info{
			ID:    i.ID,
			Title: i.Title,
			Level: i.Level,
			Theme: i.Theme,
		}
		for _, block := range i.Blocks {
			m.Content = append(m.Content, models.ContentBlock{Level: block.Level, Body: block.Body})
		}
		if err := ValidateInfo(m); err != nil {
			return ImportStats{}, fmt.Errorf("info %d: %w", n, err)
		}
		infos = append(infos, m)
	}

	if err := checkIDs(ctx, "test", tests, c.repos.GetTest); err != nil {
		return ImportStats{}, err
	}
	if err := checkIDs(ctx, "action test", actions, c.repos.GetActionTest); err != nil {
		return ImportStats{}, err
	}
	if err := checkIDs(ctx, "info", infos, c.repos.GetInfo); err != nil {
		return ImportStats{}, err
	}

	var stats ImportStats
	for _, t := range tests {
		if err := c.CreateTest(ctx, t); err != nil {
			return stats, err
		}
		stats.Tests++
	}
	for _, t := range actions {
		if err := c.CreateActionTest(ctx, t); err != nil {
			return stats, err
		}
		stats.ActionTests++
	}
	for _, i := range infos {
		if err := c.CreateInfo(ctx, i); err != nil {
			return stats, err
		}
		stats.Infos++
	}

	return stats, nil
}

// checkIDs отклоняет явные ID, которые повторяются в наборе или уже есть
// в хранилище. Пустой ID будет сгенерирован при записи.
func checkIDs[T any](ctx context.Context, name string, docs []*T, get func(context.Context, string) (*T, error)) error {
	seen := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		id := docID(d)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate %s id %q in bundle", errs.ErrConflict, name, id)
		}
		seen[id] = struct{}{}

		_, err := get(ctx, id)
		switch {
		case err == nil:
			return fmt.Errorf("%w: %s %q already exists", errs.ErrConflict, name, id)
		case !errors.Is(err, errs.ErrNotFound):
			return fmt.Errorf("check %s %q: %w", name, id, err)
		}
	}

	return nil
}

func docID(d any) string {
	switch v := d.(type) {
	case *models.Test:
		return v.ID
	case *models.ActionTest:
		return v.ID
	case *models.Info:
		return v.ID
	}

	return ""
}
