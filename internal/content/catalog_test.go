package content

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letsssgooo/funle/internal/domain/errs"
	"github.com/letsssgooo/funle/internal/domain/models"
	"github.com/letsssgooo/funle/internal/storage"
)

func validTest() *models.Test {
	return &models.Test{
		Question:      "What is 2+2?",
		Answers:       []string{"3", "4"},
		CorrectAnswer: "4",
		Level:         1,
		Theme:         "math",
	}
}

func TestCreateTest_Validation(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*models.Test)
	}{
		{name: "zero level", mutate: func(t *models.Test) { t.Level = 0 }},
		{name: "empty theme", mutate: func(t *models.Test) { t.Theme = " " }},
		{name: "empty question", mutate: func(t *models.Test) { t.Question = "" }},
		{name: "one answer", mutate: func(t *models.Test) { t.Answers = []string{"4"} }},
		{name: "correct not among answers", mutate: func(t *models.Test) { t.CorrectAnswer = "5" }},
	}

	c := NewCatalog(storage.NewMemoryStorage())

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			test := validTest()
			tc.mutate(test)

			err := c.CreateTest(context.Background(), test)
			assert.ErrorIs(t, err, errs.ErrInvalidArgument)
		})
	}
}

func TestCreateAndGet(t *testing.T) {
	c := NewCatalog(storage.NewMemoryStorage())
	ctx := context.Background()

	test := validTest()
	require.NoError(t, c.CreateTest(ctx, test))
	assert.NotEmpty(t, test.ID)
	assert.False(t, test.CreatedAt.IsZero())

	got, err := c.GetTest(ctx, test.ID)
	require.NoError(t, err)
	assert.Equal(t, test.Question, got.Question)

	at := &models.ActionTest{Example: "2*3", Actions: []string{"2*3=6"}, Answer: "6", Level: 2, Theme: "math"}
	require.NoError(t, c.CreateActionTest(ctx, at))
	assert.ErrorIs(t, c.CreateActionTest(ctx, &models.ActionTest{Example: "x", Answer: "y", Level: 1, Theme: "t"}), errs.ErrInvalidArgument)

	require.NoError(t, c.DeleteTest(ctx, test.ID))
	_, err = c.GetTest(ctx, test.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, c.DeleteActionTest(ctx, at.ID))
	assert.ErrorIs(t, c.DeleteActionTest(ctx, at.ID), errs.ErrNotFound)
}

func TestRenderInfo(t *testing.T) {
	c := NewCatalog(storage.NewMemoryStorage())
	ctx := context.Background()

	info := &models.Info{
		Title: "Fractions",
		Level: 1,
		Theme: "math",
		Content: []models.ContentBlock{
			{Level: 1, Body: "# Basics"},
			{Level: 3, Body: "**Advanced**"},
			{Level: 2, Body: "*Middle*"},
		},
	}
	require.NoError(t, c.CreateInfo(ctx, info))

	testCases := []struct {
		level   int
		want    []string
		notWant []string
	}{
		{level: 1, want: []string{"<h1", "Basics"}, notWant: []string{"Middle", "Advanced"}},
		{level: 2, want: []string{"Basics", "<em>Middle</em>"}, notWant: []string{"Advanced"}},
		{level: 3, want: []string{"Basics", "<em>Middle</em>", "<strong>Advanced</strong>"}},
	}

	for _, tc := range testCases {
		html, err := c.RenderInfo(ctx, info.ID, tc.level)
		require.NoError(t, err)

		for _, s := range tc.want {
			assert.Contains(t, html, s)
		}
		for _, s := range tc.notWant {
			assert.NotContains(t, html, s)
		}
	}

	html, err := c.RenderInfo(ctx, info.ID, 3)
	require.NoError(t, err)
	assert.Less(t, strings.Index(html, "Advanced"), strings.Index(html, "Middle"))

	_, err = c.RenderInfo(ctx, info.ID, 0)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)

	_, err = c.RenderInfo(ctx, "missing", 1)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

const bundleYAML = `
tests:
  - id: t1
    question: "2 + 2?"
    answers: ["3", "4"]
    correct_answer: "4"
    level: 1
    theme: math
action_tests:
  - id: a1
    example: "3 * (2 + 1)"
    actions: ["2 + 1 = 3", "3 * 3 = 9"]
    answer: "9"
    level: 1
    theme: math
infos:
  - id: i1
    title: Sums
    level: 1
    theme: math
    blocks:
      - level: 1
        body: "Add numbers."
`

func TestImport(t *testing.T) {
	st := storage.NewMemoryStorage()
	c := NewCatalog(st)
	ctx := context.Background()

	stats, err := c.Import(ctx, strings.NewReader(bundleYAML))
	require.NoError(t, err)
	assert.Equal(t, ImportStats{Tests: 1, ActionTests: 1, Infos: 1}, stats)

	got, err := st.GetActionTest(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, []string{"2 + 1 = 3", "3 * 3 = 9"}, got.Actions)

	info, err := st.GetInfo(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, []models.ContentBlock{{Level: 1, Body: "Add numbers."}}, info.Content)
}

func TestImport_InvalidLeavesNothing(t *testing.T) {
	st := storage.NewMemoryStorage()
	c := NewCatalog(st)
	ctx := context.Background()

	bad := bundleYAML + `
  - id: i2
    title: ""
    level: 1
    theme: math
`
	_, err := c.Import(ctx, strings.NewReader(bad))
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)

	_, err = st.GetTest(ctx, "t1")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = c.Import(ctx, strings.NewReader("tests: [unclosed"))
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestImport_ConflictingIDsLeaveNothing(t *testing.T) {
	testCases := []struct {
		name   string
		seed   func(t *testing.T, st *storage.MemoryStorage)
		bundle string
	}{
		{
			name: "duplicate id in bundle",
			seed: func(*testing.T, *storage.MemoryStorage) {},
			bundle: bundleYAML + `
  - id: i1
    title: Sums again
    level: 1
    theme: math
`,
		},
		{
			name: "id already stored",
			seed: func(t *testing.T, st *storage.MemoryStorage) {
				info := &models.Info{ID: "i1", Title: "Old", Level: 1, Theme: "math"}
				require.NoError(t, st.CreateInfo(context.Background(), info))
			},
			bundle: bundleYAML,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			st := storage.NewMemoryStorage()
			c := NewCatalog(st)
			ctx := context.Background()
			tc.seed(t, st)

			stats, err := c.Import(ctx, strings.NewReader(tc.bundle))
			assert.ErrorIs(t, err, errs.ErrConflict)
			assert.Equal(t, ImportStats{}, stats)

			_, err = st.GetTest(ctx, "t1")
			assert.ErrorIs(t, err, errs.ErrNotFound)
			_, err = st.GetActionTest(ctx, "a1")
			assert.ErrorIs(t, err, errs.ErrNotFound)
		})
	}
}

func TestUpdateContent(t *testing.T) {
	c := NewCatalog(storage.NewMemoryStorage())
	ctx := context.Background()

	test := validTest()
	require.NoError(t, c.CreateTest(ctx, test))
	created := test.CreatedAt

	edit := validTest()
	edit.ID = "other"
	edit.Answers = []string{"4", "5", "6"}
	edit.CorrectAnswer = "5"
	require.NoError(t, c.UpdateTest(ctx, test.ID, edit))
	assert.Equal(t, test.ID, edit.ID)

	got, err := c.GetTest(ctx, test.ID)
	require.NoError(t, err)
	assert.Equal(t, "5", got.CorrectAnswer)
	assert.True(t, created.Equal(got.CreatedAt))

	bad := validTest()
	bad.CorrectAnswer = "7"
	assert.ErrorIs(t, c.UpdateTest(ctx, test.ID, bad), errs.ErrInvalidArgument)
	assert.ErrorIs(t, c.UpdateTest(ctx, "missing", validTest()), errs.ErrNotFound)

	at := &models.ActionTest{Example: "2*3", Actions: []string{"2*3=6"}, Answer: "6", Level: 1, Theme: "math"}
	require.NoError(t, c.CreateActionTest(ctx, at))
	require.NoError(t, c.UpdateActionTest(ctx, at.ID, &models.ActionTest{Example: "2*4", Actions: []string{"2*4=8"}, Answer: "8", Level: 1, Theme: "math"}))
	gotAction, err := c.GetActionTest(ctx, at.ID)
	require.NoError(t, err)
	assert.Equal(t, "8", gotAction.Answer)

	info := &models.Info{Title: "Sums", Level: 1, Theme: "math"}
	require.NoError(t, c.CreateInfo(ctx, info))
	require.NoError(t, c.UpdateInfo(ctx, info.ID, &models.Info{
		Title:   "Sums and products",
		Level:   1,
		Theme:   "math",
		Content: []models.ContentBlock{{Level: 1, Body: "Multiply."}},
	}))
	html, err := c.RenderInfo(ctx, info.ID, 1)
	require.NoError(t, err)
	assert.Contains(t, html, "Multiply.")
	assert.ErrorIs(t, c.UpdateInfo(ctx, info.ID, &models.Info{Level: 1, Theme: "math"}), errs.ErrInvalidArgument)
}
