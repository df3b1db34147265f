package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"appointment-api/internal/middleware"
)

// Router wires the public credential endpoints (rate limited) and the
// token-guarded resource endpoints.
func (h *Handler) Router(rl *middleware.RateLimiter) http.Handler {
	r := chi.NewRouter()
	r.Use(h.logRequests)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(rl))
		r.Post("/users/", h.Register)
		r.Post("/users/token/", h.Login)
		r.Post("/users/token/refresh/", h.Refresh)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(h.secret))

		r.Get("/appointments/", h.ListAppointments)
		r.Post("/appointments/", h.CreateAppointment)
		r.Get("/appointments/{id}/", h.GetAppointment)
		r.Put("/appointments/{id}/", h.PutAppointment)
		r.Patch("/appointments/{id}/", h.PatchAppointment)
		r.Delete("/appointments/{id}/", h.DeleteAppointment)

		r.Get("/languages/", h.ListLanguages)
		r.Patch("/languages/{id}/", h.UpdateLanguage)
		r.Delete("/languages/{id}/", h.DeleteLanguage)
	})

	return r
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
		)
	})
}
