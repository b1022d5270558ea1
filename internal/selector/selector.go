package selector

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"

	"github.com/letsssgooo/funle/internal/domain/errs"
	"github.com/letsssgooo/funle/internal/domain/models"
	"github.com/letsssgooo/funle/internal/storage"
)

// Доли тестов в выдаче, в десятых.
const (
	choiceShare = 7
	actionShare = 3
)

// ShuffleFunc перемешивает n элементов через swap.
type ShuffleFunc func(n int, swap func(i, j int))

// Repos — репозитории, из которых Selector берёт данные.
type Repos interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	storage.TestRepo
	storage.ActionTestRepo
}

// Selection — подобранные тесты двух видов.
type Selection struct {
	Choice []models.Test       `json:"choice"`
	Action []models.ActionTest `json:"action"`
}

// Items возвращает все тесты выдачи одним списком.
func (s Selection) Items() []models.TestItem {
	items := make([]models.TestItem, 0, len(s.Choice)+len(s.Action))
	for _, t := range s.Choice {
		items = append(items, t)
	}
	for _, t := range s.Action {
		items = append(items, t)
	}

	return items
}

// Selector подбирает пользователю ещё не пройденные тесты.
type Selector struct {
	repos   Repos
	shuffle ShuffleFunc
}

// Option настраивает Selector.
type Option func(*Selector)

// WithShuffle подменяет перемешивание, например для тестов.
func WithShuffle(f ShuffleFunc) Option {
	return func(s *Selector) {
		s.shuffle = f
	}
}

// New создаёт Selector.
func New(repos Repos, opts ...Option) *Selector {
	s := &Selector{repos: repos, shuffle: rand.Shuffle}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Select возвращает тесты уровня level с темой theme, которых нет в
// пройденных пользователем. Каждый список перемешивается и обрезается до
// count, после чего от него остаётся 70% тестов с выбором и 30% тестов
// с действиями (с округлением вниз).
func (s *Selector) Select(ctx context.Context, userID string, level int, theme string, count int) (Selection, error) {
	if count < 0 {
		return Selection{}, fmt.Errorf("%w: negative count %d", errs.ErrInvalidArgument, count)
	}

	u, err := s.repos.GetUser(ctx, userID)
	if err != nil {
		return Selection{}, fmt.Errorf("select tests: %w", err)
	}
	done := u.Progress.Tests

	choice, err := s.repos.FindTests(ctx, level, theme)
	if err != nil {
		return Selection{}, fmt.Errorf("select tests: %w", err)
	}
	action, err := s.repos.FindActionTests(ctx, level, theme)
	if err != nil {
		return Selection{}, fmt.Errorf("select tests: %w", err)
	}

	sel := Selection{
		Choice: pick(choice, done, count, choiceShare, s.shuffle),
		Action: pick(action, done, count, actionShare, s.shuffle),
	}

	slog.Debug("tests selected",
		"user", userID,
		"level", level,
		"theme", theme,
		"choice", len(sel.Choice),
		"action", len(sel.Action),
	)

	return sel, nil
}

func pick[T models.TestItem](found []*T, done []string, count, share int, shuffle ShuffleFunc) []T {
	out := make([]T, 0, len(found))
	for _, t := range found {
		if !slices.Contains(done, (*t).TestID()) {
			out = append(out, *t)
		}
	}

	shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})

	if len(out) > count {
		out = out[:count]
	}

	return out[:len(out)*share/10]
}
