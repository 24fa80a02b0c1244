package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/iotcafe/backoffice/internal/form"
	"github.com/iotcafe/backoffice/internal/notify"
)

// mutation describes one write against the API issued from a page
type mutation struct {
	entity string
	action notify.Action
	// draftKey is the session key of the draft that is submitted
	draftKey string
	// forget lists the cache keys made stale by a successful write
	forget []string
}

// submit runs the draft's submission and applies the outcome policy shared by
// every entity: on success the draft is discarded, the affected cache keys are
// forgotten, a toast is queued and the browser is sent to next(); on failure a
// toast explains what happened and rerender draws the page again with the
// draft intact.
func (h *Handler) submit(w http.ResponseWriter, r *http.Request, m mutation, draft *form.Form, write form.Handler, next func() string, rerender func(status int)) {
	sess := sessionFrom(r)
	err := draft.Submit(r.Context(), write)

	switch {
	case err == nil:
		h.cache.Forget(m.forget...)
		sess.DiscardDraft(m.draftKey)
		sess.Flash(notify.Saved(m.entity, m.action))
		slog.Info("Record saved", "entity", m.entity, "action", string(m.action))
		h.redirect(w, r, next())
	case errors.Is(err, form.ErrInvalid):
		rerender(http.StatusUnprocessableEntity)
	case errors.Is(err, form.ErrSubmitting):
		sess.Flash(notify.Busy())
		rerender(http.StatusConflict)
	default:
		slog.Warn("Record not saved", "entity", m.entity, "action", string(m.action), "kind", notify.Classify(err).String(), "err", err)
		sess.Flash(notify.Failed(m.entity, m.action, err))
		rerender(failureStatus(err))
	}
}

// deletion confirms and issues the DELETE of a record. The draft has no
// fields; it only guards against the confirm button being pressed twice.
func (h *Handler) deletion(w http.ResponseWriter, r *http.Request, m mutation, del func(ctx context.Context) error, next string, confirm notify.Confirm) {
	draft := sessionFrom(r).Draft(m.draftKey, func() *form.Form {
		return form.New(url.Values{}, nil)
	})

	h.submit(w, r, m, draft,
		func(ctx context.Context, _ url.Values) error { return del(ctx) },
		func() string { return next },
		func(status int) {
			h.render(w, r, status, "confirm.html", &page{
				Title:   confirm.Title,
				Section: m.entity,
				Confirm: &confirm,
			})
		},
	)
}
