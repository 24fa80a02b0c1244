package handlers

import (
	"log/slog"
	"net/http"
)

// HandleValidate checks one field of an open draft as the user leaves it. The
// draft is identified by the path of its form; the response body is the
// field's message, empty when the value is fine.
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	if !submitted(w, r) {
		return
	}
	key := r.PostForm.Get("draft")
	field := r.PostForm.Get("field")
	if key == "" || field == "" {
		http.Error(w, "draft and field are required", http.StatusBadRequest)
		return
	}

	draft, ok := sessionFrom(r).LookupDraft(key)
	if !ok {
		http.Error(w, "No open draft for "+key, http.StatusNotFound)
		return
	}

	draft.Set(field, r.PostForm.Get("value"))
	msg := draft.ValidateField(field)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write([]byte(msg)); err != nil {
		slog.Error("Unable to write validation result", "err", err)
	}
}
