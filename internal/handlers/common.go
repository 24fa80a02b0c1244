package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iotcafe/backoffice/internal/apiclient"
	"github.com/iotcafe/backoffice/internal/fetch"
	"github.com/iotcafe/backoffice/internal/form"
	"github.com/iotcafe/backoffice/internal/models"
	"github.com/iotcafe/backoffice/internal/notify"
	"github.com/iotcafe/backoffice/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

const sessionCookie = "backoffice_session"

type contextKey string

const contextKeySession contextKey = "session"

// Handler serves the back-office pages
type Handler struct {
	client    *apiclient.Client
	cache     *fetch.Cache
	sessions  *session.Store
	pages     map[string]*template.Template
	fetchWait time.Duration
	now       func() time.Time
}

// Options tune a Handler
type Options struct {
	// FetchWait is how long a page waits for its data before rendering the loading state.
	FetchWait time.Duration
	Now       func() time.Time
}

// page is the data every template receives
type page struct {
	Title     string
	Section   string
	Toasts    []notify.Toast
	Loading   bool
	LoadError error
	ID        int
	Action    string
	Data      any
	Coffees   []models.Coffee
	Statuses  []string
	Form      *form.Form
	Confirm   *notify.Confirm
}

var pageFiles = []string{
	"home.html",
	"not_found.html",
	"confirm.html",
	"book_list.html",
	"book_detail.html",
	"book_form.html",
	"coffee_list.html",
	"coffee_detail.html",
	"coffee_form.html",
	"order_list.html",
	"order_detail.html",
	"order_form.html",
}

var templateFuncs = template.FuncMap{
	"join": models.JoinCategory,
	"price": func(p float64) string {
		return strconv.FormatFloat(p, 'f', -1, 64)
	},
}

func New(client *apiclient.Client, cache *fetch.Cache, sessions *session.Store, opts Options) (*Handler, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	pages := make(map[string]*template.Template, len(pageFiles))
	for _, name := range pageFiles {
		tmpl, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}

	return &Handler{
		client:    client,
		cache:     cache,
		sessions:  sessions,
		pages:     pages,
		fetchWait: opts.FetchWait,
		now:       opts.Now,
	}, nil
}

// Response helpers
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, p *page) {
	tmpl, ok := h.pages[name]
	if !ok {
		h.writeError(w, "Unknown page "+name, http.StatusInternalServerError)
		return
	}

	if sess := sessionFrom(r); sess != nil {
		p.Toasts = append(sess.TakeToasts(), p.Toasts...)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", p); err != nil {
		slog.Error("Unable to render page", "page", name, "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("Unable to write page", "page", name, "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "not_found.html", &page{Title: "Page not found"})
}

// idParam parses the {id} route parameter, rendering the not-found page when it is not a number
func (h *Handler) idParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		h.notFound(w, r)
		return 0, false
	}
	return id, true
}

// mount loads key through the fetch cache and fills the loading and error fields
// of p. A "refresh" query parameter refetches the key even if it is fresh.
func (h *Handler) mount(r *http.Request, key string, p *page) fetch.Snapshot {
	if r.Method == http.MethodGet && r.URL.Query().Has("refresh") {
		h.cache.Revalidate(key)
	}
	snap := h.cache.Mount(r.Context(), key, h.fetchWait)
	p.Loading = snap.IsLoading && !snap.HasData() && snap.Err == nil
	if snap.Err != nil {
		p.LoadError = snap.Err
	}
	return snap
}

// loadStatus is the response status of a view whose record failed to load
func loadStatus(snap fetch.Snapshot) int {
	if snap.HasData() || snap.Err == nil {
		return http.StatusOK
	}
	if notify.Classify(snap.Err) == notify.NotFound {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

// loadRecord mounts a single record and decodes it. The API answers a lookup
// of a missing record with null, which is reported the same way as a 404.
func loadRecord[T any](h *Handler, r *http.Request, entity, key string, p *page) (*T, int) {
	snap := h.mount(r, key, p)
	status := loadStatus(snap)
	if snap.IsNull() {
		p.LoadError = &apiclient.StatusError{Method: http.MethodGet, Path: key, StatusCode: http.StatusNotFound}
		status = http.StatusNotFound
	}
	if notify.Classify(p.LoadError) == notify.NotFound {
		p.Toasts = append(p.Toasts, notify.Failed(entity, notify.ActionLoad, p.LoadError))
	}

	rec, err := fetch.Decode[T](snap)
	if err != nil {
		p.LoadError = err
	}
	return rec, status
}

// failureStatus maps a failed submission to the status of the re-rendered page
func failureStatus(err error) int {
	switch notify.Classify(err) {
	case notify.NotFound:
		return http.StatusNotFound
	case notify.Unprocessable:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

// submitted reads the posted form body
func submitted(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return false
	}
	return true
}

func sessionFrom(r *http.Request) *session.Session {
	sess, _ := r.Context().Value(contextKeySession).(*session.Session)
	return sess
}
