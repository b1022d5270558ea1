// Package storagetest содержит общие проверки для реализаций storage.Storage.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letsssgooo/funle/internal/domain/errs"
	"github.com/letsssgooo/funle/internal/domain/models"
	"github.com/letsssgooo/funle/internal/storage"
)

// Run прогоняет все проверки на хранилище, созданном newStorage.
// Каждый подтест получает новое пустое хранилище.
func Run(t *testing.T, newStorage func(t *testing.T) storage.Storage) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStorage(t)) })
	t.Run("user update", func(t *testing.T) { testUserUpdate(t, newStorage(t)) })
	t.Run("courses", func(t *testing.T) { testCourses(t, newStorage(t)) })
	t.Run("concurrent level edits", func(t *testing.T) { testConcurrentLevels(t, newStorage(t)) })
	t.Run("tests", func(t *testing.T) { testTests(t, newStorage(t)) })
	t.Run("infos", func(t *testing.T) { testInfos(t, newStorage(t)) })
}

func testUsers(t *testing.T, st storage.Storage) {
	ctx := context.Background()

	u := &models.User{Username: "alice", Email: "alice@example.com", Role: models.RoleStudent, Progress: models.NewProgress()}
	require.NoError(t, st.CreateUser(ctx, u))
	require.NotEmpty(t, u.ID)

	dup := &models.User{Username: "alice2", Email: "alice@example.com", Role: models.RoleUser, Progress: models.NewProgress()}
	assert.ErrorIs(t, st.CreateUser(ctx, dup), errs.ErrConflict)

	got, err := st.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, models.RoleStudent, got.Role)

	byEmail, err := st.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = st.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	exists, err := st.UserExists(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	all, err := st.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, st.DeleteUser(ctx, u.ID))
	exists, err = st.UserExists(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = st.GetUser(ctx, u.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.ErrorIs(t, st.DeleteUser(ctx, u.ID), errs.ErrNotFound)

	_, err = st.GetUser(ctx, "")
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func testUserUpdate(t *testing.T, st storage.Storage) {
	ctx := context.Background()

	u := &models.User{Username: "bob", Email: "bob@example.com", Role: models.RoleUser, Progress: models.NewProgress()}
	require.NoError(t, st.CreateUser(ctx, u))

	err := st.UpdateUser(ctx, u.ID, func(u *models.User) error {
		u.Progress.Tests = append(u.Progress.Tests, "t1")
		return nil
	})
	require.NoError(t, err)

	err = st.UpdateUser(ctx, u.ID, func(u *models.User) error {
		u.Progress.Tests = append(u.Progress.Tests, "lost")
		return storage.ErrSkipWrite
	})
	require.NoError(t, err)

	failure := errors.New("boom")
	err = st.UpdateUser(ctx, u.ID, func(u *models.User) error {
		u.Progress.Tests = nil
		return failure
	})
	assert.ErrorIs(t, err, failure)

	got, err := st.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, got.Progress.Tests)

	err = st.UpdateUser(ctx, "missing", func(u *models.User) error { return nil })
	assert.ErrorIs(t, err, errs.ErrNotFound)

	other := &models.User{Username: "eve", Email: "eve@example.com", Role: models.RoleUser, Progress: models.NewProgress()}
	require.NoError(t, st.CreateUser(ctx, other))

	err = st.UpdateUser(ctx, u.ID, func(u *models.User) error {
		u.Email = "eve@example.com"
		return nil
	})
	assert.ErrorIs(t, err, errs.ErrConflict)

	err = st.UpdateUser(ctx, u.ID, func(u *models.User) error {
		u.Email = "robert@example.com"
		return nil
	})
	require.NoError(t, err)

	moved, err := st.GetUserByEmail(ctx, "robert@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, moved.ID)
	_, err = st.GetUserByEmail(ctx, "bob@example.com")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func testCourses(t *testing.T, st storage.Storage) {
	ctx := context.Background()

	c := &models.Course{Title: "Algebra", Description: "basics", Levels: models.Levels{}}
	require.NoError(t, st.CreateCourse(ctx, c))
	require.NotEmpty(t, c.ID)

	err := st.UpdateCourse(ctx, c.ID, func(c *models.Course) error {
		c.Levels.Append(1, models.LevelCell{ID: "a", Kind: models.CellInfo, ContentIDs: []string{"i1"}})
		c.Levels.Append(1, models.LevelCell{ID: "b", Kind: models.CellTest, ContentIDs: []string{"t1"}})
		return nil
	})
	require.NoError(t, err)

	got, err := st.GetCourse(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Levels[1], 2)
	assert.Equal(t, "b", got.Levels[1][1].ID)

	// Изменение прочитанной копии не влияет на хранилище.
	got.Levels[1][0].Title = "mutated"
	again, err := st.GetCourse(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Levels[1][0].Title)

	all, err := st.ListCourses(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, st.DeleteCourse(ctx, c.ID))
	_, err = st.GetCourse(ctx, c.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func testConcurrentLevels(t *testing.T, st storage.Storage) {
	ctx := context.Background()

	c := &models.Course{Title: "Concurrent", Levels: models.Levels{}}
	require.NoError(t, st.CreateCourse(ctx, c))

	const workers = 8
	const perWorker = 5

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(level int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				err := st.UpdateCourse(ctx, c.ID, func(c *models.Course) error {
					c.Levels.Append(level, models.LevelCell{
						ID:         fmt.Sprintf("%d-%d", level, i),
						Kind:       models.CellTest,
						ContentIDs: []string{"t"},
					})
					return nil
				})
				assert.NoError(t, err)
			}
		}(w + 1)
	}
	wg.Wait()

	got, err := st.GetCourse(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Levels, workers)
	for level := 1; level <= workers; level++ {
		assert.Len(t, got.Levels[level], perWorker, "level %d", level)
	}
}

func testTests(t *testing.T, st storage.Storage) {
	ctx := context.Background()

	for _, tc := range []models.Test{
		{ID: "t1", Question: "2+2", Answers: []string{"3", "4"}, CorrectAnswer: "4", Level: 1, Theme: "basics"},
		{ID: "t2", Question: "3+3", Answers: []string{"6", "7"}, CorrectAnswer: "6", Level: 1, Theme: "algebra"},
		{ID: "t3", Question: "4+4", Answers: []string{"8", "9"}, CorrectAnswer: "8", Level: 2, Theme: "basics"},
	} {
		test := tc
		require.NoError(t, st.CreateTest(ctx, &test))
	}

	found, err := st.FindTests(ctx, 1, "basics")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "t1", found[0].ID)

	got, err := st.GetTest(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, "6", got.CorrectAnswer)

	assert.ErrorIs(t, st.CreateTest(ctx, &models.Test{ID: "t2"}), errs.ErrConflict)

	a := &models.ActionTest{Example: "2 + 2 * 2", Actions: []string{"2 * 2", "2 + 4"}, Answer: "6", Level: 1, Theme: "basics"}
	require.NoError(t, st.CreateActionTest(ctx, a))
	require.NotEmpty(t, a.ID)

	actions, err := st.FindActionTests(ctx, 1, "basics")
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, []string{"2 * 2", "2 + 4"}, actions[0].Actions)

	none, err := st.FindActionTests(ctx, 3, "basics")
	require.NoError(t, err)
	assert.Empty(t, none)

	err = st.UpdateActionTest(ctx, a.ID, func(t *models.ActionTest) error {
		t.Answer = "8"
		return nil
	})
	require.NoError(t, err)
	updated, err := st.GetActionTest(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "8", updated.Answer)

	err = st.UpdateTest(ctx, "t2", func(t *models.Test) error {
		t.ID = "renamed"
		t.Question = "3*3"
		t.Answers = []string{"6", "9"}
		t.CorrectAnswer = "9"
		return nil
	})
	require.NoError(t, err)
	got, err = st.GetTest(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, "t2", got.ID)
	assert.Equal(t, "9", got.CorrectAnswer)
	_, err = st.GetTest(ctx, "renamed")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	err = st.UpdateTest(ctx, "missing", func(t *models.Test) error { return nil })
	assert.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, st.DeleteTest(ctx, "t1"))
	require.NoError(t, st.DeleteActionTest(ctx, a.ID))
	_, err = st.GetActionTest(ctx, a.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func testInfos(t *testing.T, st storage.Storage) {
	ctx := context.Background()

	info := &models.Info{Title: "Fractions", Content: []models.ContentBlock{{Level: 1, Body: "# Half"}}, Level: 1, Theme: "basics"}
	require.NoError(t, st.CreateInfo(ctx, info))

	got, err := st.GetInfo(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, "# Half", got.Content[0].Body)

	all, err := st.ListInfos(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	err = st.UpdateInfo(ctx, info.ID, func(i *models.Info) error {
		i.Title = "Halves"
		return nil
	})
	require.NoError(t, err)
	got, err = st.GetInfo(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, "Halves", got.Title)
	assert.Equal(t, "# Half", got.Content[0].Body)

	require.NoError(t, st.DeleteInfo(ctx, info.ID))
	_, err = st.GetInfo(ctx, info.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
