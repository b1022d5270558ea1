package selector

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letsssgooo/funle/internal/domain/errs"
	"github.com/letsssgooo/funle/internal/domain/models"
	"github.com/letsssgooo/funle/internal/storage"
)

func noShuffle(int, func(i, j int)) {}

type fixture struct {
	st     *storage.MemoryStorage
	userID string
}

func newFixture(t *testing.T, done []string, choice, action int) fixture {
	t.Helper()

	ctx := context.Background()
	st := storage.NewMemoryStorage()

	p := models.NewProgress()
	p.Tests = done
	u := &models.User{Username: "bob", Email: "bob@example.com", Role: models.RoleStudent, Progress: p}
	require.NoError(t, st.CreateUser(ctx, u))

	for i := 0; i < choice; i++ {
		require.NoError(t, st.CreateTest(ctx, &models.Test{
			ID: fmt.Sprintf("c%d", i), Question: "q", Answers: []string{"a", "b"}, CorrectAnswer: "a", Level: 1, Theme: "math",
		}))
	}
	for i := 0; i < action; i++ {
		require.NoError(t, st.CreateActionTest(ctx, &models.ActionTest{
			ID: fmt.Sprintf("a%d", i), Example: "2+2", Actions: []string{"add"}, Answer: "4", Level: 1, Theme: "math",
		}))
	}
	// другой уровень и другая тема не должны попадать в выдачу
	require.NoError(t, st.CreateTest(ctx, &models.Test{ID: "other-level", Level: 2, Theme: "math"}))
	require.NoError(t, st.CreateTest(ctx, &models.Test{ID: "other-theme", Level: 1, Theme: "art"}))

	return fixture{st: st, userID: u.ID}
}

func ids(items []models.TestItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.TestID())
	}

	return out
}

func TestSelect_Proportions(t *testing.T) {
	testCases := []struct {
		name       string
		choice     int
		action     int
		count      int
		wantChoice int
		wantAction int
	}{
		{name: "five choice three action", choice: 5, action: 3, count: 10, wantChoice: 3, wantAction: 0},
		{name: "ten each", choice: 10, action: 10, count: 10, wantChoice: 7, wantAction: 3},
		{name: "truncated before share", choice: 20, action: 20, count: 10, wantChoice: 7, wantAction: 3},
		{name: "zero count", choice: 5, action: 5, count: 0, wantChoice: 0, wantAction: 0},
		{name: "nothing stored", count: 10},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, nil, tc.choice, tc.action)
			s := New(f.st, WithShuffle(noShuffle))

			sel, err := s.Select(context.Background(), f.userID, 1, "math", tc.count)
			require.NoError(t, err)

			assert.Len(t, sel.Choice, tc.wantChoice)
			assert.Len(t, sel.Action, tc.wantAction)
			assert.Len(t, sel.Items(), tc.wantChoice+tc.wantAction)
		})
	}
}

func TestSelect_ExcludesCompleted(t *testing.T) {
	done := []string{"c0", "c1", "c2", "a0"}
	f := newFixture(t, done, 10, 10)
	s := New(f.st)

	for i := 0; i < 20; i++ {
		sel, err := s.Select(context.Background(), f.userID, 1, "math", 100)
		require.NoError(t, err)

		got := ids(sel.Items())
		for _, id := range done {
			assert.NotContains(t, got, id)
		}
		assert.NotContains(t, got, "other-level")
		assert.NotContains(t, got, "other-theme")
		assert.Len(t, sel.Choice, 4)
		assert.Len(t, sel.Action, 2)
	}
}

func TestSelect_CompletedOtherTheme(t *testing.T) {
	f := newFixture(t, []string{"t2"}, 5, 3)
	ctx := context.Background()
	require.NoError(t, f.st.CreateTest(ctx, &models.Test{
		ID: "t2", Question: "q", Answers: []string{"a", "b"}, CorrectAnswer: "a", Level: 1, Theme: "art",
	}))
	s := New(f.st)

	for i := 0; i < 20; i++ {
		sel, err := s.Select(ctx, f.userID, 1, "math", 10)
		require.NoError(t, err)

		assert.LessOrEqual(t, len(sel.Choice), 3)
		assert.Empty(t, sel.Action)
		assert.NotContains(t, ids(sel.Items()), "t2")
		for _, c := range sel.Choice {
			assert.Equal(t, "math", c.Theme)
		}
	}
}

func TestSelect_ShufflesEachList(t *testing.T) {
	f := newFixture(t, nil, 10, 10)

	calls := 0
	reverse := func(n int, swap func(i, j int)) {
		calls++
		for i := 0; i < n/2; i++ {
			swap(i, n-1-i)
		}
	}
	s := New(f.st, WithShuffle(reverse))

	sel, err := s.Select(context.Background(), f.userID, 1, "math", 10)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	// хранилище отдаёт документы в порядке ключей, c9 после разворота первый
	assert.Equal(t, "c9", sel.Choice[0].ID)
	assert.Equal(t, "a9", sel.Action[0].ID)
}

func TestSelect_Errors(t *testing.T) {
	f := newFixture(t, nil, 1, 1)
	s := New(f.st)
	ctx := context.Background()

	_, err := s.Select(ctx, "ghost", 1, "math", 5)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = s.Select(ctx, f.userID, 1, "math", -1)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

type failingRepos struct {
	*storage.MemoryStorage
}

var errBroken = errors.New("broken")

func (failingRepos) FindActionTests(context.Context, int, string) ([]*models.ActionTest, error) {
	return nil, errBroken
}

func TestSelect_RepoFailurePropagates(t *testing.T) {
	f := newFixture(t, nil, 1, 1)
	s := New(failingRepos{f.st})

	_, err := s.Select(context.Background(), f.userID, 1, "math", 5)
	assert.ErrorIs(t, err, errBroken)
}
