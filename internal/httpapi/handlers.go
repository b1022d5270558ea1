package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/letsssgooo/funle/internal/auth"
	"github.com/letsssgooo/funle/internal/domain/errs"
	"github.com/letsssgooo/funle/internal/domain/models"
)

// userView — пользователь без хэша пароля.
type userView struct {
	ID        string          `json:"id"`
	Username  string          `json:"username"`
	Email     string          `json:"email"`
	Role      models.UserRole `json:"role"`
	Progress  models.Progress `json:"progress"`
	CreatedAt time.Time       `json:"created_at"`
}

func viewOf(u *models.User) userView {
	return userView{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		Progress:  u.Progress.Normalized(),
		CreatedAt: u.CreatedAt,
	}
}

func subject(r *http.Request) string {
	c, _ := claimsFrom(r.Context())
	return c.Subject
}

func intParam(name, raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errs.ErrInvalidArgument, name)
	}

	return n, nil
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, "OK", nil)
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	u, err := h.auth.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, "user created", viewOf(u))
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	tokens, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "logged in", tokens)
}

func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	tokens, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "tokens refreshed", tokens)
}

func (h *handler) checkToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	userID, valid := h.auth.Check(r.Context(), req.Token)
	writeJSON(w, http.StatusOK, "token checked", map[string]any{
		"user_id":  userID,
		"is_valid": valid,
	})
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetUser(r.Context(), subject(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "user", viewOf(u))
}

func (h *handler) getProgress(w http.ResponseWriter, r *http.Request) {
	p, err := h.progress.Get(r.Context(), subject(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "progress", p)
}

func (h *handler) addProgress(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	kind, err := models.ParseProgressKind(vars["kind"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err = h.progress.Add(r.Context(), kind, subject(r), vars["id"]); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "progress added", nil)
}

func (h *handler) removeProgress(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	kind, err := models.ParseProgressKind(vars["kind"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err = h.progress.Remove(r.Context(), kind, subject(r), vars["id"]); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "progress removed", nil)
}

func (h *handler) replaceProgress(w http.ResponseWriter, r *http.Request) {
	var p models.Progress
	if err := decode(w, r, &p); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.progress.ReplaceAll(r.Context(), mux.Vars(r)["id"], p); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "progress replaced", nil)
}

func (h *handler) selectTests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	level, err := intParam("level", q.Get("level"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	count, err := intParam("count", q.Get("count"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	sel, err := h.selector.Select(r.Context(), subject(r), level, q.Get("theme"), count)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "tests selected", sel)
}

func (h *handler) submit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Answer string `json:"answer"`
	}
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	vars := mux.Vars(r)
	res, err := h.quiz.Submit(r.Context(), subject(r), models.TestKind(vars["kind"]), vars["id"], req.Answer)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "answer checked", res)
}

func (h *handler) listInfos(w http.ResponseWriter, r *http.Request) {
	infos, err := h.content.ListInfos(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "infos", infos)
}

func (h *handler) passInfo(w http.ResponseWriter, r *http.Request) {
	if err := h.quiz.PassInfo(r.Context(), subject(r), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "info passed", nil)
}

func (h *handler) renderInfo(w http.ResponseWriter, r *http.Request) {
	level, err := intParam("level", r.URL.Query().Get("level"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	html, err := h.content.RenderInfo(r.Context(), mux.Vars(r)["id"], level)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "info rendered", map[string]string{"html": html})
}

func (h *handler) createTest(w http.ResponseWriter, r *http.Request) {
	var err error
	var created any

	switch models.TestKind(mux.Vars(r)["kind"]) {
	case models.TestChoice:
		var t models.Test
		if err = decode(w, r, &t); err == nil {
			err = h.content.CreateTest(r.Context(), &t)
		}
		created = t
	case models.TestAction:
		var t models.ActionTest
		if err = decode(w, r, &t); err == nil {
			err = h.content.CreateActionTest(r.Context(), &t)
		}
		created = t
	default:
		err = fmt.Errorf("%w: unknown test kind", errs.ErrInvalidArgument)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, "test created", created)
}

func (h *handler) getTest(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var (
		found any
		err   error
	)
	switch models.TestKind(vars["kind"]) {
	case models.TestChoice:
		found, err = h.content.GetTest(r.Context(), vars["id"])
	case models.TestAction:
		found, err = h.content.GetActionTest(r.Context(), vars["id"])
	default:
		err = fmt.Errorf("%w: unknown test kind", errs.ErrInvalidArgument)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "test", found)
}

func (h *handler) updateTest(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var (
		updated any
		err     error
	)
	switch models.TestKind(vars["kind"]) {
	case models.TestChoice:
		var t models.Test
		if err = decode(w, r, &t); err == nil {
			err = h.content.UpdateTest(r.Context(), vars["id"], &t)
		}
		updated = t
	case models.TestAction:
		var t models.ActionTest
		if err = decode(w, r, &t); err == nil {
			err = h.content.UpdateActionTest(r.Context(), vars["id"], &t)
		}
		updated = t
	default:
		err = fmt.Errorf("%w: unknown test kind", errs.ErrInvalidArgument)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "test updated", updated)
}

func (h *handler) deleteTest(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var err error
	switch models.TestKind(vars["kind"]) {
	case models.TestChoice:
		err = h.content.DeleteTest(r.Context(), vars["id"])
	case models.TestAction:
		err = h.content.DeleteActionTest(r.Context(), vars["id"])
	default:
		err = fmt.Errorf("%w: unknown test kind", errs.ErrInvalidArgument)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "test deleted", nil)
}

func (h *handler) createInfo(w http.ResponseWriter, r *http.Request) {
	var info models.Info
	if err := decode(w, r, &info); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.content.CreateInfo(r.Context(), &info); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, "info created", info)
}

func (h *handler) getInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.content.GetInfo(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "info", info)
}

func (h *handler) updateInfo(w http.ResponseWriter, r *http.Request) {
	var info models.Info
	if err := decode(w, r, &info); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.content.UpdateInfo(r.Context(), mux.Vars(r)["id"], &info); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "info updated", info)
}

func (h *handler) deleteInfo(w http.ResponseWriter, r *http.Request) {
	if err := h.content.DeleteInfo(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "info deleted", nil)
}

func (h *handler) importContent(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)

	stats, err := h.content.Import(r.Context(), body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, "content imported", stats)
}

func (h *handler) exportProgress(w http.ResponseWriter, r *http.Request) {
	data, err := h.quiz.ExportCSV(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="progress.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
