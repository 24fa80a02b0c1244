package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/iotcafe/backoffice/internal/session"
)

// Routes builds the router for the web interface
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthcheck", h.HandleHealthcheck)
	r.Get("/static/*", h.HandleStatic)

	r.Group(func(r chi.Router) {
		r.Use(h.withSession)
		r.NotFound(h.notFound)

		r.Get("/", h.HandleHome)
		r.Post("/validate", h.HandleValidate)

		r.Route("/books", func(r chi.Router) {
			r.Get("/", h.HandleBooks)
			r.Get("/create", h.HandleBookCreate)
			r.Post("/create", h.HandleBookCreateSubmit)
			r.Get("/{id}", h.HandleBook)
			r.Get("/{id}/edit", h.HandleBookEdit)
			r.Post("/{id}/edit", h.HandleBookEditSubmit)
			r.Get("/{id}/delete", h.HandleBookDelete)
			r.Post("/{id}/delete", h.HandleBookDeleteSubmit)
		})

		r.Route("/coffees", func(r chi.Router) {
			r.Get("/", h.HandleCoffees)
			r.Get("/create", h.HandleCoffeeCreate)
			r.Post("/create", h.HandleCoffeeCreateSubmit)
			r.Get("/{id}", h.HandleCoffee)
			r.Get("/{id}/edit", h.HandleCoffeeEdit)
			r.Post("/{id}/edit", h.HandleCoffeeEditSubmit)
			r.Get("/{id}/delete", h.HandleCoffeeDelete)
			r.Post("/{id}/delete", h.HandleCoffeeDeleteSubmit)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.HandleOrders)
			r.Get("/create", h.HandleOrderCreate)
			r.Post("/create", h.HandleOrderCreateSubmit)
			r.Get("/{id}", h.HandleOrder)
			r.Get("/{id}/edit", h.HandleOrderEdit)
			r.Post("/{id}/edit", h.HandleOrderEditSubmit)
			r.Get("/{id}/delete", h.HandleOrderDelete)
			r.Post("/{id}/delete", h.HandleOrderDeleteSubmit)
		})
	})

	return r
}

func (h *Handler) HandleHealthcheck(w http.ResponseWriter, r *http.Request) {
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Unable to write healthcheck", "err", err)
	}
}

// withSession attaches the browser's session, starting one when the cookie is
// missing or stale. Navigating to a page drops the drafts of every other page.
func (h *Handler) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sess *session.Session
		if c, err := r.Cookie(sessionCookie); err == nil {
			sess, _ = h.sessions.Get(c.Value)
		}
		if sess == nil {
			sess = h.sessions.Start()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    sess.ID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		if r.Method == http.MethodGet {
			sess.KeepOnlyDraft(r.URL.Path)
		}

		ctx := context.WithValue(r.Context(), contextKeySession, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Info("Request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
