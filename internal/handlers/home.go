package handlers

import (
	"net/http"

	"github.com/iotcafe/backoffice/internal/apiclient"
	"github.com/iotcafe/backoffice/internal/fetch"
)

// HandleHome links to the three sections and shows the API version when the API answers
func (h *Handler) HandleHome(w http.ResponseWriter, r *http.Request) {
	p := &page{Title: "Back office", Section: "home"}
	snap := h.cache.Mount(r.Context(), "/", h.fetchWait)

	if info, err := fetch.Decode[apiclient.VersionInfo](snap); err == nil && info != nil {
		p.Data = info
	}
	h.render(w, r, http.StatusOK, "home.html", p)
}
