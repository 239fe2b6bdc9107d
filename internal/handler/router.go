package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/qwertttyyy/TaskManagement/internal/middleware"
)

// NewRouter assembles the HTTP surface. Task reads are open to any
// caller; mutations and my-tasks sit behind JWT auth.
func NewRouter(auth *AuthHandler, tasks *TaskHandler, notifications *NotificationHandler, jwtSecret string) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(5, 10))
		r.Post("/api/users/register/", auth.HandleRegister)
		r.Post("/api/users/auth/token/", auth.HandleToken)
	})

	r.Get("/api/tasks/", tasks.HandleList)
	r.Get("/api/tasks/{task_id}/", tasks.HandleGet)

	r.Group(func(r chi.Router) {
		r.Use(middleware.JWTAuth(jwtSecret))
		r.Post("/api/tasks/", tasks.HandleCreate)
		r.Get("/api/tasks/my-tasks/", tasks.HandleMyTasks)
		r.Patch("/api/tasks/{task_id}/", tasks.HandleUpdate)
		r.Delete("/api/tasks/{task_id}/", tasks.HandleDelete)
	})

	r.Get("/ws/notifications/", notifications.HandleNotifications)

	return r
}
