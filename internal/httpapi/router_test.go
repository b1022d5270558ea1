package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/letsssgooo/funle/internal/auth"
	"github.com/letsssgooo/funle/internal/content"
	"github.com/letsssgooo/funle/internal/course"
	"github.com/letsssgooo/funle/internal/domain/models"
	"github.com/letsssgooo/funle/internal/progress"
	"github.com/letsssgooo/funle/internal/quiz"
	"github.com/letsssgooo/funle/internal/selector"
	"github.com/letsssgooo/funle/internal/storage"
	"github.com/letsssgooo/funle/internal/token"
)

type env struct {
	t       *testing.T
	st      *storage.MemoryStorage
	handler http.Handler
}

func newEnv(t *testing.T) *env {
	t.Helper()

	st := storage.NewMemoryStorage()
	tokens, err := token.NewService([]byte("test-secret"))
	require.NoError(t, err)

	store := progress.NewStore(st)
	h := NewRouter(Services{
		Users:    st,
		Auth:     auth.NewService(st, tokens, auth.BcryptHasher{Cost: bcrypt.MinCost}),
		Progress: store,
		Courses:  course.NewTree(st),
		Selector: selector.New(st),
		Quiz:     quiz.NewEngine(st, store),
		Content:  content.NewCatalog(st),
	})

	return &env{t: t, st: st, handler: h}
}

type reply struct {
	Code int
	Body Response
	Raw  string
}

func (e *env) do(method, path, tok string, body any) reply {
	e.t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(e.t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	out := reply{Code: rec.Code, Raw: rec.Body.String()}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &out.Body))
	}

	return out
}

// data перекладывает поле data ответа в v.
func (r reply) data(t *testing.T, v any) {
	t.Helper()

	raw, err := json.Marshal(r.Body.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, v))
}

func (e *env) signUp(name string, role models.UserRole) (string, string) {
	e.t.Helper()

	email := name + "@example.com"
	res := e.do(http.MethodPost, "/users/register", "", auth.RegisterRequest{
		Username: name,
		Email:    email,
		Password: "password123",
		Role:     string(role),
	})
	require.Equal(e.t, http.StatusCreated, res.Code, res.Raw)

	var u userView
	res.data(e.t, &u)

	res = e.do(http.MethodPost, "/users/login", "", map[string]string{"email": email, "password": "password123"})
	require.Equal(e.t, http.StatusOK, res.Code, res.Raw)

	var tokens auth.Tokens
	res.data(e.t, &tokens)

	return u.ID, tokens.AccessToken
}

func TestHealth(t *testing.T) {
	e := newEnv(t)

	res := e.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "success", res.Body.Status)
}

func TestAuthFlow(t *testing.T) {
	e := newEnv(t)

	userID, access := e.signUp("alice", models.RoleStudent)

	res := e.do(http.MethodGet, "/me", access, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.NotContains(t, res.Raw, "hashed_password")

	res = e.do(http.MethodPost, "/users/register", "", auth.RegisterRequest{
		Username: "alice2", Email: "alice@example.com", Password: "password123",
	})
	assert.Equal(t, http.StatusConflict, res.Code)

	res = e.do(http.MethodPost, "/users/login", "", map[string]string{"email": "alice@example.com", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "error", res.Body.Status)

	res = e.do(http.MethodPost, "/auth", "", map[string]string{"token": access})
	require.Equal(t, http.StatusOK, res.Code)
	var check struct {
		UserID  string `json:"user_id"`
		IsValid bool   `json:"is_valid"`
	}
	res.data(t, &check)
	assert.True(t, check.IsValid)
	assert.Equal(t, userID, check.UserID)
}

func TestAuthRequired(t *testing.T) {
	e := newEnv(t)

	testCases := []struct {
		name   string
		header string
	}{
		{name: "no header"},
		{name: "not bearer", header: "Basic abc"},
		{name: "garbage token", header: "Bearer garbage"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me/progress", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			e.handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestTeacherOnly(t *testing.T) {
	e := newEnv(t)
	_, student := e.signUp("student", models.RoleStudent)

	res := e.do(http.MethodPost, "/courses", student, courseRequest{Title: "Math"})
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = e.do(http.MethodGet, "/courses", student, nil)
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestCourseCells(t *testing.T) {
	e := newEnv(t)
	_, teacher := e.signUp("teacher", models.RoleTeacher)
	_, student := e.signUp("student", models.RoleStudent)

	res := e.do(http.MethodPost, "/courses", teacher, courseRequest{Title: "Math"})
	require.Equal(t, http.StatusCreated, res.Code, res.Raw)
	var c models.Course
	res.data(t, &c)

	cell := models.LevelCell{ContentIDs: []string{"i1"}, Title: "Intro", Kind: models.CellInfo}
	res = e.do(http.MethodPost, "/courses/"+c.ID+"/levels/1/cells", teacher, cell)
	require.Equal(t, http.StatusCreated, res.Code, res.Raw)
	var added models.LevelCell
	res.data(t, &added)
	require.NotEmpty(t, added.ID)

	cellPath := "/courses/" + c.ID + "/levels/1/cells/" + added.ID

	cell.Title = "Intro v2"
	res = e.do(http.MethodPut, cellPath, teacher, cell)
	require.Equal(t, http.StatusOK, res.Code, res.Raw)

	res = e.do(http.MethodGet, cellPath, student, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Raw)
	var got models.LevelCell
	res.data(t, &got)
	assert.Equal(t, "Intro v2", got.Title)
	assert.Equal(t, added.ID, got.ID)

	res = e.do(http.MethodDelete, cellPath, student, nil)
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = e.do(http.MethodDelete, cellPath, teacher, nil)
	require.Equal(t, http.StatusOK, res.Code)

	res = e.do(http.MethodDelete, cellPath, teacher, nil)
	assert.Equal(t, http.StatusNotFound, res.Code)

	res = e.do(http.MethodGet, "/courses/"+c.ID+"/levels/x/cells/"+added.ID, student, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = e.do(http.MethodPost, "/courses/"+c.ID+"/enroll", student, nil)
	require.Equal(t, http.StatusOK, res.Code)

	res = e.do(http.MethodGet, "/me/progress", student, nil)
	var p models.Progress
	res.data(t, &p)
	assert.Equal(t, []string{c.ID}, p.Courses)
}

func TestTestsFlow(t *testing.T) {
	e := newEnv(t)
	_, teacher := e.signUp("teacher", models.RoleTeacher)
	_, student := e.signUp("student", models.RoleStudent)

	test := models.Test{
		ID:            "t1",
		Question:      "2+2?",
		Answers:       []string{"3", "4"},
		CorrectAnswer: "4",
		Level:         1,
		Theme:         "math",
	}
	res := e.do(http.MethodPost, "/tests/choice", teacher, test)
	require.Equal(t, http.StatusCreated, res.Code, res.Raw)

	res = e.do(http.MethodPost, "/tests/essay", teacher, test)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = e.do(http.MethodGet, "/me/tests?level=1&theme=math&count=10", student, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Raw)

	res = e.do(http.MethodGet, "/me/tests?level=1&theme=math&count=-1", student, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = e.do(http.MethodPost, "/tests/choice/t1/submit", student, map[string]string{"answer": "4"})
	require.Equal(t, http.StatusOK, res.Code, res.Raw)
	var result quiz.Result
	res.data(t, &result)
	assert.True(t, result.IsCorrect)

	res = e.do(http.MethodGet, "/me/progress", student, nil)
	var p models.Progress
	res.data(t, &p)
	assert.Equal(t, []string{"t1"}, p.Tests)

	res = e.do(http.MethodGet, "/admin/progress.csv", teacher, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Raw, "Username")
	assert.Contains(t, res.Raw, "student")
}

func TestProgressRoutes(t *testing.T) {
	e := newEnv(t)
	_, teacher := e.signUp("teacher", models.RoleTeacher)
	studentID, student := e.signUp("student", models.RoleStudent)

	res := e.do(http.MethodPut, "/me/progress/nodes/n1", student, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Raw)

	res = e.do(http.MethodPut, "/me/progress/friends/n1", student, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = e.do(http.MethodDelete, "/me/progress/nodes/n1", student, nil)
	require.Equal(t, http.StatusOK, res.Code)

	res = e.do(http.MethodPut, "/admin/users/"+studentID+"/progress", teacher, models.Progress{Infos: []string{"i1", "i1"}})
	require.Equal(t, http.StatusOK, res.Code, res.Raw)

	res = e.do(http.MethodPut, "/admin/users/ghost/progress", teacher, models.Progress{})
	assert.Equal(t, http.StatusNotFound, res.Code)

	p, err := progress.NewStore(e.st).Get(context.Background(), studentID)
	require.NoError(t, err)
	assert.Equal(t, []string{"i1"}, p.Infos)
	assert.Empty(t, p.Nodes)
}

func TestInfosAndImport(t *testing.T) {
	e := newEnv(t)
	_, teacher := e.signUp("teacher", models.RoleTeacher)
	_, student := e.signUp("student", models.RoleStudent)

	bundle := `
infos:
  - id: i1
    title: Sums
    level: 1
    theme: math
    blocks:
      - level: 1
        body: "**Add** numbers."
`
	res := e.do(http.MethodPost, "/admin/content/import", teacher, bundle)
	require.Equal(t, http.StatusCreated, res.Code, res.Raw)

	res = e.do(http.MethodPost, "/admin/content/import", teacher, bundle)
	assert.Equal(t, http.StatusConflict, res.Code, res.Raw)

	res = e.do(http.MethodGet, "/infos/i1/render?level=1", student, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Raw)
	var rendered map[string]string
	res.data(t, &rendered)
	assert.Contains(t, rendered["html"], "<strong>Add</strong>")

	res = e.do(http.MethodPost, "/infos/i1/pass", student, nil)
	require.Equal(t, http.StatusOK, res.Code)

	res = e.do(http.MethodPost, "/infos/missing/pass", student, nil)
	assert.Equal(t, http.StatusNotFound, res.Code)

	res = e.do(http.MethodDelete, "/infos/i1", teacher, nil)
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestContentEditing(t *testing.T) {
	e := newEnv(t)
	_, teacher := e.signUp("teacher", models.RoleTeacher)
	_, student := e.signUp("student", models.RoleStudent)

	test := models.Test{ID: "t1", Question: "2+2?", Answers: []string{"3", "4"}, CorrectAnswer: "4", Level: 1, Theme: "math"}
	res := e.do(http.MethodPost, "/tests/choice", teacher, test)
	require.Equal(t, http.StatusCreated, res.Code, res.Raw)
	action := models.ActionTest{ID: "a1", Example: "2*3", Actions: []string{"2*3=6"}, Answer: "6", Level: 1, Theme: "math"}
	res = e.do(http.MethodPost, "/tests/action", teacher, action)
	require.Equal(t, http.StatusCreated, res.Code, res.Raw)
	info := models.Info{ID: "i1", Title: "Sums", Level: 1, Theme: "math"}
	res = e.do(http.MethodPost, "/infos", teacher, info)
	require.Equal(t, http.StatusCreated, res.Code, res.Raw)

	res = e.do(http.MethodGet, "/tests/choice/t1", student, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Raw)
	var got models.Test
	res.data(t, &got)
	assert.Equal(t, "2+2?", got.Question)

	test.Question = "2+3?"
	test.Answers = []string{"4", "5"}
	test.CorrectAnswer = "5"

	testCases := []struct {
		name   string
		method string
		path   string
		tok    string
		body   any
		want   int
	}{
		{name: "get unknown kind", method: http.MethodGet, path: "/tests/essay/t1", tok: student, want: http.StatusBadRequest},
		{name: "get missing test", method: http.MethodGet, path: "/tests/choice/missing", tok: student, want: http.StatusNotFound},
		{name: "get action test", method: http.MethodGet, path: "/tests/action/a1", tok: student, want: http.StatusOK},
		{name: "student cannot update", method: http.MethodPut, path: "/tests/choice/t1", tok: student, body: test, want: http.StatusForbidden},
		{name: "invalid update", method: http.MethodPut, path: "/tests/choice/t1", tok: teacher, body: models.Test{Question: "q", Level: 1, Theme: "math"}, want: http.StatusBadRequest},
		{name: "update missing", method: http.MethodPut, path: "/tests/choice/missing", tok: teacher, body: test, want: http.StatusNotFound},
		{name: "update choice", method: http.MethodPut, path: "/tests/choice/t1", tok: teacher, body: test, want: http.StatusOK},
		{name: "update action", method: http.MethodPut, path: "/tests/action/a1", tok: teacher, body: models.ActionTest{Example: "2*4", Actions: []string{"2*4=8"}, Answer: "8", Level: 1, Theme: "math"}, want: http.StatusOK},
		{name: "get info", method: http.MethodGet, path: "/infos/i1", tok: student, want: http.StatusOK},
		{name: "get missing info", method: http.MethodGet, path: "/infos/missing", tok: student, want: http.StatusNotFound},
		{name: "student cannot update info", method: http.MethodPut, path: "/infos/i1", tok: student, body: info, want: http.StatusForbidden},
		{name: "update info", method: http.MethodPut, path: "/infos/i1", tok: teacher, body: models.Info{Title: "Sums and products", Level: 1, Theme: "math"}, want: http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := e.do(tc.method, tc.path, tc.tok, tc.body)
			assert.Equal(t, tc.want, res.Code, res.Raw)
		})
	}

	res = e.do(http.MethodGet, "/tests/choice/t1", student, nil)
	res.data(t, &got)
	assert.Equal(t, "t1", got.ID)
	assert.Equal(t, "5", got.CorrectAnswer)

	res = e.do(http.MethodGet, "/tests/action/a1", student, nil)
	var gotAction models.ActionTest
	res.data(t, &gotAction)
	assert.Equal(t, "8", gotAction.Answer)

	res = e.do(http.MethodGet, "/infos/i1", student, nil)
	var gotInfo models.Info
	res.data(t, &gotInfo)
	assert.Equal(t, "Sums and products", gotInfo.Title)
}

func TestAdminUsers(t *testing.T) {
	e := newEnv(t)
	_, teacher := e.signUp("teacher", models.RoleTeacher)
	studentID, student := e.signUp("student", models.RoleStudent)

	res := e.do(http.MethodGet, "/admin/users", student, nil)
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = e.do(http.MethodGet, "/admin/users", teacher, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Raw)
	assert.NotContains(t, res.Raw, "hashed_password")
	var users []userView
	res.data(t, &users)
	assert.Len(t, users, 2)

	res = e.do(http.MethodGet, "/admin/users/"+studentID, teacher, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Raw)
	var u userView
	res.data(t, &u)
	assert.Equal(t, "student@example.com", u.Email)

	res = e.do(http.MethodGet, "/admin/users/ghost", teacher, nil)
	assert.Equal(t, http.StatusNotFound, res.Code)

	res = e.do(http.MethodPut, "/admin/users/"+studentID, teacher, auth.UpdateUserRequest{Email: "teacher@example.com"})
	assert.Equal(t, http.StatusConflict, res.Code, res.Raw)

	res = e.do(http.MethodPut, "/admin/users/"+studentID, teacher, auth.UpdateUserRequest{Role: "admin"})
	assert.Equal(t, http.StatusBadRequest, res.Code, res.Raw)

	res = e.do(http.MethodPut, "/admin/users/"+studentID, teacher, auth.UpdateUserRequest{Username: "pupil", Role: "user"})
	require.Equal(t, http.StatusOK, res.Code, res.Raw)
	res.data(t, &u)
	assert.Equal(t, "pupil", u.Username)
	assert.Equal(t, models.RoleUser, u.Role)

	res = e.do(http.MethodDelete, "/admin/users/"+studentID, teacher, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Raw)

	res = e.do(http.MethodGet, "/me", student, nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = e.do(http.MethodPost, "/auth", "", map[string]string{"token": student})
	require.Equal(t, http.StatusOK, res.Code)
	var check struct {
		UserID  string `json:"user_id"`
		IsValid bool   `json:"is_valid"`
	}
	res.data(t, &check)
	assert.False(t, check.IsValid)
	assert.Empty(t, check.UserID)

	res = e.do(http.MethodDelete, "/admin/users/"+studentID, teacher, nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestBadBody(t *testing.T) {
	e := newEnv(t)

	res := e.do(http.MethodPost, "/users/register", "", "{not json")
	assert.Equal(t, http.StatusBadRequest, res.Code)
}
