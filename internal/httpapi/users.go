package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/letsssgooo/funle/internal/auth"
)

func (h *handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.auth.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, viewOf(u))
	}

	writeJSON(w, http.StatusOK, "users", views)
}

func (h *handler) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.auth.GetUser(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "user", viewOf(u))
}

func (h *handler) updateUser(w http.ResponseWriter, r *http.Request) {
	var req auth.UpdateUserRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	u, err := h.auth.UpdateUser(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "user updated", viewOf(u))
}

func (h *handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.DeleteUser(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "user deleted", nil)
}
