package quiz

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/letsssgooo/funle/internal/domain/errs"
	"github.com/letsssgooo/funle/internal/domain/models"
	"github.com/letsssgooo/funle/internal/storage"
)

// AnswerLetters — буквы, которыми можно выбрать вариант ответа.
var AnswerLetters = []string{"A", "B", "C", "D", "E", "F", "G", "H"}

// LetterToIndex преобразует букву в индекс (A=0, B=1, ...).
func LetterToIndex(letter string) (int, bool) {
	letter = strings.ToUpper(strings.TrimSpace(letter))
	for i, l := range AnswerLetters {
		if l == letter {
			return i, true
		}
	}

	return -1, false
}

// IndexToLetter преобразует индекс в букву (0=A, 1=B, ...).
func IndexToLetter(idx int) string {
	if idx >= 0 && idx < len(AnswerLetters) {
		return AnswerLetters[idx]
	}

	return ""
}

// Recorder записывает пройденный материал в прогресс пользователя.
type Recorder interface {
	Add(ctx context.Context, kind models.ProgressKind, userID, itemID string) error
}

// Repos — репозитории, нужные Engine.
type Repos interface {
	GetTest(ctx context.Context, id string) (*models.Test, error)
	GetActionTest(ctx context.Context, id string) (*models.ActionTest, error)
	GetInfo(ctx context.Context, id string) (*models.Info, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
}

// Result — итог проверки ответа.
type Result struct {
	TestID    string          `json:"test_id"`
	Kind      models.TestKind `json:"kind"`
	IsCorrect bool            `json:"is_correct"`
	Correct   string          `json:"correct_answer,omitempty"`
	// Letter — буква правильного варианта, только для тестов с выбором.
	Letter string `json:"correct_letter,omitempty"`
}

// Engine проверяет ответы на тесты и отмечает пройденный материал.
type Engine struct {
	repos    Repos
	progress Recorder
}

// NewEngine создаёт новый Engine.
func NewEngine(repos Repos, progress Recorder) *Engine {
	return &Engine{repos: repos, progress: progress}
}

var _ Repos = (storage.Storage)(nil)

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// checkChoice сравнивает ответ с правильным. Ответ можно дать текстом
// варианта или его буквой. Совпадение с текстом любого варианта важнее
// буквы: вариант "C" не читается как третий по счёту.
func checkChoice(t *models.Test, answer string) bool {
	given := normalize(answer)
	for _, a := range t.Answers {
		if normalize(a) == given {
			return given == normalize(t.CorrectAnswer)
		}
	}

	if idx, ok := LetterToIndex(answer); ok && idx < len(t.Answers) {
		return normalize(t.Answers[idx]) == normalize(t.CorrectAnswer)
	}

	return false
}

// correctLetter возвращает букву правильного варианта.
func correctLetter(t *models.Test) string {
	return IndexToLetter(slices.Index(t.Answers, t.CorrectAnswer))
}

// Submit проверяет ответ пользователя на тест вида kind. Правильный ответ
// добавляет тест в пройденные.
func (e *Engine) Submit(ctx context.Context, userID string, kind models.TestKind, testID, answer string) (Result, error) {
	if userID == "" || testID == "" {
		return Result{}, fmt.Errorf("%w: user id and test id are required", errs.ErrInvalidArgument)
	}

	res := Result{TestID: testID, Kind: kind}

	switch kind {
	case models.TestChoice:
		t, err := e.repos.GetTest(ctx, testID)
		if err != nil {
			return Result{}, fmt.Errorf("submit answer: %w", err)
		}
		res.IsCorrect = checkChoice(t, answer)
		res.Correct = t.CorrectAnswer
		res.Letter = correctLetter(t)
	case models.TestAction:
		t, err := e.repos.GetActionTest(ctx, testID)
		if err != nil {
			return Result{}, fmt.Errorf("submit answer: %w", err)
		}
		res.IsCorrect = normalize(answer) == normalize(t.Answer)
		res.Correct = t.Answer
	default:
		return Result{}, fmt.Errorf("%w: unknown test kind %q", errs.ErrInvalidArgument, kind)
	}

	slog.Debug("answer checked", "user", userID, "test", testID, "correct", res.IsCorrect)

	if !res.IsCorrect {
		return res, nil
	}

	if err := e.progress.Add(ctx, models.ProgressTests, userID, testID); err != nil {
		return Result{}, fmt.Errorf("submit answer: %w", err)
	}

	return res, nil
}

// PassInfo отмечает материал прочитанным.
func (e *Engine) PassInfo(ctx context.Context, userID, infoID string) error {
	if _, err := e.repos.GetInfo(ctx, infoID); err != nil {
		return fmt.Errorf("pass info: %w", err)
	}

	if err := e.progress.Add(ctx, models.ProgressInfos, userID, infoID); err != nil {
		return fmt.Errorf("pass info: %w", err)
	}

	return nil
}

// ExportCSV экспортирует сводку прогресса всех пользователей в CSV.
func (e *Engine) ExportCSV(ctx context.Context) ([]byte, error) {
	users, err := e.repos.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("export progress: %w", err)
	}

	rows := make([][]string, 0, len(users)+1)
	rows = append(rows, []string{
		"ID",
		"Username",
		"Email",
		"Role",
		"Courses",
		"Tests",
		"Infos",
		"Nodes",
	})
	for _, u := range users {
		p := u.Progress.Normalized()
		rows = append(rows, []string{
			u.ID,
			u.Username,
			u.Email,
			string(u.Role),
			strconv.Itoa(len(p.Courses)),
			strconv.Itoa(len(p.Tests)),
			strconv.Itoa(len(p.Infos)),
			strconv.Itoa(len(p.Nodes)),
		})
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err = w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("export progress: %w", err)
	}

	return buf.Bytes(), nil
}
