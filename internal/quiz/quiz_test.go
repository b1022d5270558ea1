package quiz

import (
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letsssgooo/funle/internal/domain/errs"
	"github.com/letsssgooo/funle/internal/domain/models"
	"github.com/letsssgooo/funle/internal/progress"
	"github.com/letsssgooo/funle/internal/storage"
)

type fixture struct {
	st     *storage.MemoryStorage
	engine *Engine
	store  *progress.Store
	userID string
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	ctx := context.Background()
	st := storage.NewMemoryStorage()

	u := &models.User{Username: "Анна", Email: "anna@example.com", Role: models.RoleStudent, Progress: models.NewProgress()}
	require.NoError(t, st.CreateUser(ctx, u))

	require.NoError(t, st.CreateTest(ctx, &models.Test{
		ID:            "t1",
		Question:      "What is 2+2?",
		Answers:       []string{"3", "4", "5", "6"},
		CorrectAnswer: "4",
		Level:         1,
		Theme:         "math",
	}))
	require.NoError(t, st.CreateTest(ctx, &models.Test{
		ID:            "t2",
		Question:      "Which language has no garbage collector?",
		Answers:       []string{"C", "Go", "Java"},
		CorrectAnswer: "C",
		Level:         1,
		Theme:         "langs",
	}))
	require.NoError(t, st.CreateActionTest(ctx, &models.ActionTest{
		ID:      "a1",
		Example: "3 * (2 + 1)",
		Actions: []string{"2 + 1 = 3", "3 * 3 = 9"},
		Answer:  "9",
		Level:   1,
		Theme:   "math",
	}))
	require.NoError(t, st.CreateInfo(ctx, &models.Info{ID: "i1", Title: "Sums", Level: 1, Theme: "math"}))

	store := progress.NewStore(st)

	return fixture{st: st, engine: NewEngine(st, store), store: store, userID: u.ID}
}

func TestLetterToIndex(t *testing.T) {
	testCases := []struct {
		letter string
		want   int
		ok     bool
	}{
		{letter: "A", want: 0, ok: true},
		{letter: "b", want: 1, ok: true},
		{letter: " D ", want: 3, ok: true},
		{letter: "Z", want: -1, ok: false},
		{letter: "", want: -1, ok: false},
	}

	for _, tc := range testCases {
		t.Run(tc.letter, func(t *testing.T) {
			got, ok := LetterToIndex(tc.letter)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.ok, ok)
		})
	}

	assert.Equal(t, "C", IndexToLetter(2))
	assert.Empty(t, IndexToLetter(100))
}

func TestSubmit(t *testing.T) {
	testCases := []struct {
		name    string
		kind    models.TestKind
		testID  string
		answer  string
		correct bool
		letter  string
	}{
		{name: "choice text", kind: models.TestChoice, testID: "t1", answer: " 4 ", correct: true, letter: "B"},
		{name: "choice letter", kind: models.TestChoice, testID: "t1", answer: "b", correct: true, letter: "B"},
		{name: "choice wrong letter", kind: models.TestChoice, testID: "t1", answer: "A", correct: false, letter: "B"},
		{name: "choice wrong text", kind: models.TestChoice, testID: "t1", answer: "5", correct: false, letter: "B"},
		{name: "choice unknown", kind: models.TestChoice, testID: "t1", answer: "seven", correct: false, letter: "B"},
		{name: "option text looks like letter", kind: models.TestChoice, testID: "t2", answer: "C", correct: true, letter: "A"},
		{name: "option text looks like letter lowercase", kind: models.TestChoice, testID: "t2", answer: "c", correct: true, letter: "A"},
		{name: "letter of correct option", kind: models.TestChoice, testID: "t2", answer: "A", correct: true, letter: "A"},
		{name: "letter of wrong option", kind: models.TestChoice, testID: "t2", answer: "B", correct: false, letter: "A"},
		{name: "wrong option text", kind: models.TestChoice, testID: "t2", answer: "Java", correct: false, letter: "A"},
		{name: "action", kind: models.TestAction, testID: "a1", answer: "9", correct: true},
		{name: "action wrong", kind: models.TestAction, testID: "a1", answer: "6", correct: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			res, err := f.engine.Submit(ctx, f.userID, tc.kind, tc.testID, tc.answer)
			require.NoError(t, err)
			assert.Equal(t, tc.correct, res.IsCorrect)
			assert.Equal(t, tc.kind, res.Kind)
			assert.Equal(t, tc.letter, res.Letter)

			p, err := f.store.Get(ctx, f.userID)
			require.NoError(t, err)
			assert.Equal(t, tc.correct, p.Has(models.ProgressTests, tc.testID))
		})
	}
}

func TestSubmit_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Submit(ctx, f.userID, models.TestChoice, "missing", "4")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = f.engine.Submit(ctx, f.userID, "essay", "t1", "4")
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)

	_, err = f.engine.Submit(ctx, "ghost", models.TestChoice, "t1", "4")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestPassInfo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.PassInfo(ctx, f.userID, "i1"))
	require.NoError(t, f.engine.PassInfo(ctx, f.userID, "i1"))

	p, err := f.store.Get(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, []string{"i1"}, p.Infos)

	assert.ErrorIs(t, f.engine.PassInfo(ctx, f.userID, "missing"), errs.ErrNotFound)
}

func TestExportCSV_UTF8(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Submit(ctx, f.userID, models.TestChoice, "t1", "4")
	require.NoError(t, err)

	data, err := f.engine.ExportCSV(ctx)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, []string{"ID", "Username", "Email", "Role", "Courses", "Tests", "Infos", "Nodes"}, records[0])
	assert.Equal(t, []string{f.userID, "Анна", "anna@example.com", "Student", "0", "1", "0", "0"}, records[1])
}
