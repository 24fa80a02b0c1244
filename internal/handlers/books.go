package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/iotcafe/backoffice/internal/apiclient"
	"github.com/iotcafe/backoffice/internal/fetch"
	"github.com/iotcafe/backoffice/internal/form"
	"github.com/iotcafe/backoffice/internal/models"
	"github.com/iotcafe/backoffice/internal/notify"
)

const minBookYear = 1900

func bookRules(now time.Time) form.Rules {
	maxYear := now.Year() + 1
	return form.Rules{
		"title":  form.Required("Please enter the book title"),
		"author": form.Required("Please enter the author's name"),
		"year": form.Chain(
			form.Required("Please enter the year of publication"),
			form.Integer("The year must be a whole number"),
			form.Between(minBookYear, maxYear, fmt.Sprintf("The year must be between %d and %d", minBookYear, maxYear)),
		),
	}
}

func bookDefaults(now time.Time) url.Values {
	return url.Values{
		"title":        {""},
		"author":       {""},
		"details":      {""},
		"synopsis":     {""},
		"category":     {},
		"year":         {strconv.Itoa(now.Year())},
		"is_published": {},
	}
}

func bookValues(b *models.Book) url.Values {
	v := url.Values{
		"title":    {b.Title},
		"author":   {b.Author},
		"details":  {b.Details},
		"synopsis": {b.Synopsis},
		"category": b.Tags(),
		"year":     {strconv.Itoa(b.Year)},
	}
	if b.IsPublished {
		v.Set("is_published", "true")
	}
	return v
}

// bookInput turns the single tag field of the page into the tag list of the draft
func bookInput(posted url.Values) url.Values {
	v := url.Values{}
	for k, vals := range posted {
		v[k] = vals
	}
	v["category"] = models.SplitCategory(posted.Get("category"))
	return v
}

func bookCreateFrom(v url.Values) models.BookCreate {
	year, _ := strconv.Atoi(v.Get("year"))
	return models.BookCreate{
		Title:       v.Get("title"),
		Author:      v.Get("author"),
		Details:     v.Get("details"),
		Synopsis:    v.Get("synopsis"),
		Category:    append([]string{}, v["category"]...),
		Year:        year,
		IsPublished: v.Get("is_published") == "true",
	}
}

func bookUpdateFrom(v url.Values) models.BookUpdate {
	year, _ := strconv.Atoi(v.Get("year"))
	return models.BookUpdate{
		Title:       v.Get("title"),
		Author:      v.Get("author"),
		Details:     v.Get("details"),
		Synopsis:    v.Get("synopsis"),
		Category:    models.JoinCategory(v["category"]),
		Year:        year,
		IsPublished: v.Get("is_published") == "true",
	}
}

// HandleBooks lists every book
func (h *Handler) HandleBooks(w http.ResponseWriter, r *http.Request) {
	p := &page{Title: "Books", Section: "book"}
	snap := h.mount(r, apiclient.BooksPath, p)

	books, err := fetch.Decode[[]models.Book](snap)
	if err != nil {
		p.LoadError = err
	}
	if books != nil {
		p.Data = *books
	}
	h.render(w, r, http.StatusOK, "book_list.html", p)
}

// HandleBook shows a single book
func (h *Handler) HandleBook(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}

	p := &page{Title: "Book", Section: "book", ID: id}
	book, status := loadRecord[models.Book](h, r, "book", apiclient.BookPath(id), p)
	if book != nil {
		p.Title = book.Title
		p.Data = book
	}
	h.render(w, r, status, "book_detail.html", p)
}

// HandleBookCreate shows the empty book form
func (h *Handler) HandleBookCreate(w http.ResponseWriter, r *http.Request) {
	draft := h.bookCreateDraft(r)
	h.render(w, r, http.StatusOK, "book_form.html", &page{
		Title:   "New book",
		Section: "book",
		Action:  r.URL.Path,
		Form:    draft,
	})
}

func (h *Handler) HandleBookCreateSubmit(w http.ResponseWriter, r *http.Request) {
	if !submitted(w, r) {
		return
	}
	draft := h.bookCreateDraft(r)
	draft.Bind(bookInput(r.PostForm))

	var created *models.Book
	h.submit(w, r,
		mutation{entity: "book", action: notify.ActionCreate, draftKey: r.URL.Path, forget: []string{apiclient.BooksPath}},
		draft,
		func(ctx context.Context, v url.Values) error {
			var err error
			created, err = h.client.CreateBook(ctx, bookCreateFrom(v))
			return err
		},
		func() string {
			if created != nil && created.ID > 0 {
				return fmt.Sprintf("/books/%d", created.ID)
			}
			return "/books"
		},
		func(status int) {
			h.render(w, r, status, "book_form.html", &page{
				Title:   "New book",
				Section: "book",
				Action:  r.URL.Path,
				Form:    draft,
			})
		},
	)
}

func (h *Handler) bookCreateDraft(r *http.Request) *form.Form {
	now := h.now()
	return sessionFrom(r).Draft(r.URL.Path, func() *form.Form {
		return form.New(bookDefaults(now), bookRules(now))
	})
}

// HandleBookEdit shows the edit form, seeded once from the fetched book
func (h *Handler) HandleBookEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}

	p := &page{Title: "Edit book", Section: "book", ID: id, Action: r.URL.Path}
	draft, status := h.bookEditDraft(r, id, p)
	if draft.Seeded() {
		p.Form = draft
	}
	h.render(w, r, status, "book_form.html", p)
}

func (h *Handler) HandleBookEditSubmit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if !submitted(w, r) {
		return
	}

	p := &page{Title: "Edit book", Section: "book", ID: id, Action: r.URL.Path}
	draft, status := h.bookEditDraft(r, id, p)
	if !draft.Seeded() {
		// the record is not available, so there is nothing to edit yet
		h.render(w, r, status, "book_form.html", p)
		return
	}
	p.Form = draft
	draft.Bind(bookInput(r.PostForm))

	h.submit(w, r,
		mutation{
			entity:   "book",
			action:   notify.ActionUpdate,
			draftKey: r.URL.Path,
			forget:   []string{apiclient.BooksPath, apiclient.BookPath(id)},
		},
		draft,
		func(ctx context.Context, v url.Values) error {
			_, err := h.client.UpdateBook(ctx, id, bookUpdateFrom(v))
			return err
		},
		func() string { return fmt.Sprintf("/books/%d", id) },
		func(status int) { h.render(w, r, status, "book_form.html", p) },
	)
}

func (h *Handler) bookEditDraft(r *http.Request, id int, p *page) (*form.Form, int) {
	now := h.now()
	draft := sessionFrom(r).Draft(editKey("books", id), func() *form.Form {
		return form.New(bookDefaults(now), bookRules(now))
	})

	book, status := loadRecord[models.Book](h, r, "book", apiclient.BookPath(id), p)
	if book != nil {
		draft.Seed(bookValues(book))
	}
	return draft, status
}

// HandleBookDelete asks for confirmation before deleting a book
func (h *Handler) HandleBookDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	confirm := notify.ConfirmDelete("book", r.URL.Path, editKey("books", id))
	h.render(w, r, http.StatusOK, "confirm.html", &page{Title: confirm.Title, Section: "book", ID: id, Confirm: &confirm})
}

func (h *Handler) HandleBookDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	h.deletion(w, r,
		mutation{
			entity:   "book",
			action:   notify.ActionDelete,
			draftKey: r.URL.Path,
			forget:   []string{apiclient.BooksPath, apiclient.BookPath(id)},
		},
		func(ctx context.Context) error { return h.client.DeleteBook(ctx, id) },
		"/books",
		notify.ConfirmDelete("book", r.URL.Path, editKey("books", id)),
	)
}

// editKey is the path of an edit page, which is also the session key of its draft
func editKey(collection string, id int) string {
	return fmt.Sprintf("/%s/%d/edit", collection, id)
}
