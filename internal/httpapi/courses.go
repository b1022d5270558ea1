package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/letsssgooo/funle/internal/domain/models"
)

type courseRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (h *handler) listCourses(w http.ResponseWriter, r *http.Request) {
	cs, err := h.courses.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "courses", cs)
}

func (h *handler) getCourse(w http.ResponseWriter, r *http.Request) {
	c, err := h.courses.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "course", c)
}

func (h *handler) enroll(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if _, err := h.courses.Get(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.progress.Add(r.Context(), models.ProgressCourses, subject(r), id); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "enrolled", nil)
}

func (h *handler) createCourse(w http.ResponseWriter, r *http.Request) {
	var req courseRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.courses.Create(r.Context(), req.Title, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, "course created", c)
}

func (h *handler) updateCourse(w http.ResponseWriter, r *http.Request) {
	var req courseRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.courses.UpdateDetails(r.Context(), mux.Vars(r)["id"], req.Title, req.Description); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "course updated", nil)
}

func (h *handler) deleteCourse(w http.ResponseWriter, r *http.Request) {
	if err := h.courses.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "course deleted", nil)
}

// cellVars разбирает id курса и номер уровня из пути.
func cellVars(r *http.Request) (string, int, error) {
	vars := mux.Vars(r)

	level, err := intParam("level", vars["level"])
	if err != nil {
		return "", 0, err
	}

	return vars["id"], level, nil
}

func (h *handler) getCell(w http.ResponseWriter, r *http.Request) {
	courseID, level, err := cellVars(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	cell, err := h.courses.GetCell(r.Context(), courseID, level, mux.Vars(r)["cellID"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "cell", cell)
}

func (h *handler) addCell(w http.ResponseWriter, r *http.Request) {
	courseID, level, err := cellVars(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var cell models.LevelCell
	if err = decode(w, r, &cell); err != nil {
		writeError(w, r, err)
		return
	}

	cell, err = h.courses.AddCell(r.Context(), courseID, level, cell)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, "cell added", cell)
}

func (h *handler) updateCell(w http.ResponseWriter, r *http.Request) {
	courseID, level, err := cellVars(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var cell models.LevelCell
	if err = decode(w, r, &cell); err != nil {
		writeError(w, r, err)
		return
	}

	cell, err = h.courses.UpdateCell(r.Context(), courseID, level, mux.Vars(r)["cellID"], cell)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "cell updated", cell)
}

func (h *handler) removeCell(w http.ResponseWriter, r *http.Request) {
	courseID, level, err := cellVars(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err = h.courses.RemoveCell(r.Context(), courseID, level, mux.Vars(r)["cellID"]); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "cell removed", nil)
}
