package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/letsssgooo/funle/internal/auth"
	"github.com/letsssgooo/funle/internal/content"
	"github.com/letsssgooo/funle/internal/course"
	"github.com/letsssgooo/funle/internal/domain/models"
	"github.com/letsssgooo/funle/internal/progress"
	"github.com/letsssgooo/funle/internal/quiz"
	"github.com/letsssgooo/funle/internal/selector"
	"github.com/letsssgooo/funle/internal/storage"
)

// Services — сервисы, которые обслуживает HTTP слой.
type Services struct {
	Users    storage.UserRepo
	Auth     *auth.Service
	Progress *progress.Store
	Courses  *course.Tree
	Selector *selector.Selector
	Quiz     *quiz.Engine
	Content  *content.Catalog
}

type handler struct {
	users    storage.UserRepo
	auth     *auth.Service
	progress *progress.Store
	courses  *course.Tree
	selector *selector.Selector
	quiz     *quiz.Engine
	content  *content.Catalog
}

// NewRouter собирает маршруты.
func NewRouter(s Services) http.Handler {
	h := &handler{
		users:    s.Users,
		auth:     s.Auth,
		progress: s.Progress,
		courses:  s.Courses,
		selector: s.Selector,
		quiz:     s.Quiz,
		content:  s.Content,
	}

	user := func(f http.HandlerFunc) http.Handler {
		return h.authenticate(f)
	}
	teacher := func(f http.HandlerFunc) http.Handler {
		return h.authenticate(requireRole(models.RoleTeacher)(f))
	}

	r := mux.NewRouter()

	r.HandleFunc("/health", h.health).Methods(http.MethodGet)

	// Регистрация и токены
	r.HandleFunc("/users/register", h.register).Methods(http.MethodPost)
	r.HandleFunc("/users/login", h.login).Methods(http.MethodPost)
	r.HandleFunc("/auth/refresh", h.refresh).Methods(http.MethodPost)
	r.HandleFunc("/auth", h.checkToken).Methods(http.MethodPost)

	// Текущий пользователь
	r.Handle("/me", user(h.me)).Methods(http.MethodGet)
	r.Handle("/me/progress", user(h.getProgress)).Methods(http.MethodGet)
	r.Handle("/me/progress/{kind}/{id}", user(h.addProgress)).Methods(http.MethodPut)
	r.Handle("/me/progress/{kind}/{id}", user(h.removeProgress)).Methods(http.MethodDelete)
	r.Handle("/me/tests", user(h.selectTests)).Methods(http.MethodGet)

	// Прохождение материала
	r.Handle("/tests/{kind}/{id}", user(h.getTest)).Methods(http.MethodGet)
	r.Handle("/tests/{kind}/{id}/submit", user(h.submit)).Methods(http.MethodPost)
	r.Handle("/infos", user(h.listInfos)).Methods(http.MethodGet)
	r.Handle("/infos/{id}", user(h.getInfo)).Methods(http.MethodGet)
	r.Handle("/infos/{id}/pass", user(h.passInfo)).Methods(http.MethodPost)
	r.Handle("/infos/{id}/render", user(h.renderInfo)).Methods(http.MethodGet)

	// Курсы
	r.Handle("/courses", user(h.listCourses)).Methods(http.MethodGet)
	r.Handle("/courses/{id}", user(h.getCourse)).Methods(http.MethodGet)
	r.Handle("/courses/{id}/enroll", user(h.enroll)).Methods(http.MethodPost)
	r.Handle("/courses/{id}/levels/{level}/cells/{cellID}", user(h.getCell)).Methods(http.MethodGet)

	// Только для преподавателя
	r.Handle("/courses", teacher(h.createCourse)).Methods(http.MethodPost)
	r.Handle("/courses/{id}", teacher(h.updateCourse)).Methods(http.MethodPut)
	r.Handle("/courses/{id}", teacher(h.deleteCourse)).Methods(http.MethodDelete)
	r.Handle("/courses/{id}/levels/{level}/cells", teacher(h.addCell)).Methods(http.MethodPost)
	r.Handle("/courses/{id}/levels/{level}/cells/{cellID}", teacher(h.updateCell)).Methods(http.MethodPut)
	r.Handle("/courses/{id}/levels/{level}/cells/{cellID}", teacher(h.removeCell)).Methods(http.MethodDelete)
	r.Handle("/tests/{kind}", teacher(h.createTest)).Methods(http.MethodPost)
	r.Handle("/tests/{kind}/{id}", teacher(h.updateTest)).Methods(http.MethodPut)
	r.Handle("/tests/{kind}/{id}", teacher(h.deleteTest)).Methods(http.MethodDelete)
	r.Handle("/infos", teacher(h.createInfo)).Methods(http.MethodPost)
	r.Handle("/infos/{id}", teacher(h.updateInfo)).Methods(http.MethodPut)
	r.Handle("/infos/{id}", teacher(h.deleteInfo)).Methods(http.MethodDelete)
	r.Handle("/admin/users", teacher(h.listUsers)).Methods(http.MethodGet)
	r.Handle("/admin/users/{id}", teacher(h.getUser)).Methods(http.MethodGet)
	r.Handle("/admin/users/{id}", teacher(h.updateUser)).Methods(http.MethodPut)
	r.Handle("/admin/users/{id}", teacher(h.deleteUser)).Methods(http.MethodDelete)
	r.Handle("/admin/users/{id}/progress", teacher(h.replaceProgress)).Methods(http.MethodPut)
	r.Handle("/admin/progress.csv", teacher(h.exportProgress)).Methods(http.MethodGet)
	r.Handle("/admin/content/import", teacher(h.importContent)).Methods(http.MethodPost)

	return logRequests(r)
}
