package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Mount registers all API routes on r.
func (h *Handler) Mount(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/tasks", h.SubmitTask)
		r.Get("/tasks/{id}", h.GetTask)
		r.Get("/stats", h.GetStats)

		r.Get("/approvals", h.ListApprovals)
		r.Get("/approvals/{taskID}", h.GetApproval)
		r.Post("/approvals/{taskID}/respond", h.RespondApproval)

		r.Get("/dead-letters", h.ListDeadLetters)
		r.Post("/dead-letters/retry", h.RetryDeadLetters)

		r.Get("/audit/today", h.AuditLogs)
		r.Get("/audit/summary", h.AuditSummary)
		r.Get("/audit/verify", h.AuditVerify)

		r.Get("/health", h.Health)
		r.Post("/system/pause", h.Pause)
		r.Post("/system/resume", h.Resume)
	})
}

// Router returns a chi router with the standard middleware stack and all
// API routes mounted.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(h.requestLogger)
	r.Use(chimw.Recoverer)
	h.Mount(r)
	return r
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}
