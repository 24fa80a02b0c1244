package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iotcafe/backoffice/internal/apiclient"
	"github.com/iotcafe/backoffice/internal/fetch"
	"github.com/iotcafe/backoffice/internal/models"
	"github.com/iotcafe/backoffice/internal/session"
)

var testNow = time.Date(2025, time.March, 14, 9, 0, 0, 0, time.UTC)

func newTestHandler(t *testing.T, api http.Handler) *Handler {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	client := apiclient.NewClient(srv.URL+"/api/v1", 5*time.Second)
	cache := fetch.New(client.GetRaw, fetch.Options{DedupeInterval: fetch.DefaultDedupeInterval})
	h, err := New(client, cache, session.New(), Options{
		FetchWait: 2 * time.Second,
		Now:       func() time.Time { return testNow },
	})
	require.NoError(t, err)
	return h
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func get(h *Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func post(h *Handler, path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

// browser replays the session cookie the way a real browser would
type browser struct {
	h       *Handler
	cookies []*http.Cookie
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	b.h.Routes().ServeHTTP(rec, req)
	if set := rec.Result().Cookies(); len(set) > 0 {
		b.cookies = set
	}
	return rec
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) post(path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func TestBookEditRedirectsToDetail(t *testing.T) {
	var patches atomic.Int32
	var sent map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/books/1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, models.Book{ID: 1, Title: "Dune", Author: "Frank Herbert", Category: "scifi", Year: 1965})
	})
	mux.HandleFunc("PATCH /api/v1/books/1", func(w http.ResponseWriter, r *http.Request) {
		patches.Add(1)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &sent))
		writeJSON(t, w, http.StatusOK, models.Book{ID: 1, Title: "Dune Messiah"})
	})
	h := newTestHandler(t, mux)

	rec := post(h, "/books/1/edit", url.Values{
		"title":        {"Dune Messiah"},
		"author":       {"Frank Herbert"},
		"year":         {"1969"},
		"category":     {"scifi,  classics ,"},
		"is_published": {"true"},
	})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/books/1", rec.Header().Get("Location"))
	assert.Equal(t, int32(1), patches.Load())
	assert.Equal(t, "Dune Messiah", sent["title"])
	assert.Equal(t, "scifi, classics", sent["category"])
	assert.Equal(t, float64(1969), sent["year"])
	assert.Equal(t, true, sent["is_published"])
}

func TestBookEditInvalidDoesNotCallAPI(t *testing.T) {
	var patches atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/books/1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, models.Book{ID: 1, Title: "Dune", Author: "Frank Herbert", Year: 1965})
	})
	mux.HandleFunc("PATCH /api/v1/books/1", func(w http.ResponseWriter, r *http.Request) {
		patches.Add(1)
	})
	h := newTestHandler(t, mux)

	rec := post(h, "/books/1/edit", url.Values{
		"title":  {"Dune"},
		"author": {""},
		"year":   {"1800"},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Zero(t, patches.Load())
	assert.Contains(t, rec.Body.String(), "Please enter the author&#39;s name")
	assert.Contains(t, rec.Body.String(), "The year must be between 1900 and 2026")
}

func TestBookCreateSendsTagList(t *testing.T) {
	var sent map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/books", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
		writeJSON(t, w, http.StatusCreated, models.Book{ID: 12, Title: "Emma"})
	})
	h := newTestHandler(t, mux)

	rec := post(h, "/books/create", url.Values{
		"title":    {"Emma"},
		"author":   {"Jane Austen"},
		"year":     {"2025"},
		"category": {"romance, classics"},
	})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/books/12", rec.Header().Get("Location"))
	assert.Equal(t, []any{"romance", "classics"}, sent["category"])
	assert.Equal(t, false, sent["is_published"])
}

func TestCoffeeDetailNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/coffees/99", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusNotFound, map[string]string{"detail": "Coffee not found"})
	})
	h := newTestHandler(t, mux)

	rec := get(h, "/coffees/99")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Header().Get("Location"))
	body := rec.Body.String()
	assert.Contains(t, body, "toast-danger")
	assert.Contains(t, body, "Coffee not found")
}

func TestConcurrentCoffeeListsShareOneLoad(t *testing.T) {
	var loads atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/coffees", func(w http.ResponseWriter, r *http.Request) {
		loads.Add(1)
		time.Sleep(100 * time.Millisecond)
		writeJSON(t, w, http.StatusOK, []models.Coffee{{ID: 1, Name: "Espresso", Price: 2.5}})
	})
	h := newTestHandler(t, mux)

	var wg sync.WaitGroup
	recs := make([]*httptest.ResponseRecorder, 2)
	for i := range recs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			recs[i] = get(h, "/coffees")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	for _, rec := range recs {
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Espresso")
	}
}

func TestListShowsLoadingWhileFetchIsSlow(t *testing.T) {
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/orders", func(w http.ResponseWriter, r *http.Request) {
		<-release
		writeJSON(t, w, http.StatusOK, []models.Order{})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	client := apiclient.NewClient(srv.URL+"/api/v1", 0)
	cache := fetch.New(client.GetRaw, fetch.Options{})
	h, err := New(client, cache, session.New(), Options{FetchWait: 20 * time.Millisecond})
	require.NoError(t, err)

	rec := get(h, "/orders")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http-equiv="refresh"`)
	assert.Contains(t, rec.Body.String(), "Loading")
}

func TestOrderDeleteConfirmed(t *testing.T) {
	var deletes atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /api/v1/orders/5", func(w http.ResponseWriter, r *http.Request) {
		deletes.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})
	h := newTestHandler(t, mux)

	confirm := get(h, "/orders/5/delete")
	assert.Equal(t, http.StatusOK, confirm.Code)
	assert.Contains(t, confirm.Body.String(), "Do you want to delete this order?")
	assert.Zero(t, deletes.Load())

	rec := post(h, "/orders/5/delete", url.Values{})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/orders", rec.Header().Get("Location"))
	assert.Equal(t, int32(1), deletes.Load())
}

func TestDeleteFailureUsesNotificationPolicy(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /api/v1/coffees/3", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusInternalServerError, map[string]string{"detail": "boom"})
	})
	h := newTestHandler(t, mux)

	rec := post(h, "/coffees/3/delete", url.Values{})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Empty(t, rec.Header().Get("Location"))
	assert.Contains(t, rec.Body.String(), "Something went wrong")
	assert.Contains(t, rec.Body.String(), "Do you want to delete this coffee?")
}

func TestOrderCreateRejectsUnknownCoffee(t *testing.T) {
	var creates atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/coffees", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, []models.Coffee{{ID: 1, Name: "Espresso", Price: 2.5}})
	})
	mux.HandleFunc("POST /api/v1/orders", func(w http.ResponseWriter, r *http.Request) {
		creates.Add(1)
		writeJSON(t, w, http.StatusCreated, models.Order{ID: 8})
	})
	h := newTestHandler(t, mux)

	rec := post(h, "/orders/create", url.Values{"coffee_id": {"7"}, "quantity": {"2"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Zero(t, creates.Load())

	rec = post(h, "/orders/create", url.Values{"coffee_id": {"1"}, "quantity": {"2"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/orders/8", rec.Header().Get("Location"))
	assert.Equal(t, int32(1), creates.Load())
}

func TestUnprocessableResponseKeepsDraft(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/coffees", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusUnprocessableEntity, map[string]string{"detail": "bad"})
	})
	h := newTestHandler(t, mux)

	rec := post(h, "/coffees/create", url.Values{"name": {"Mocha"}, "price": {"3.75"}})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid data")
	assert.Contains(t, rec.Body.String(), `value="Mocha"`)
	assert.Contains(t, rec.Body.String(), `value="3.75"`)
}

func TestRouting(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, apiclient.VersionInfo{Version: "1.4.0"})
	})
	h := newTestHandler(t, mux)

	tests := []struct {
		path     string
		status   int
		contains string
	}{
		{"/", http.StatusOK, "API version 1.4.0"},
		{"/healthcheck", http.StatusOK, "OK"},
		{"/books/abc", http.StatusNotFound, "Page not found"},
		{"/nowhere", http.StatusNotFound, "Page not found"},
		{"/static/app.css", http.StatusOK, ".topbar"},
		{"/books/create", http.StatusOK, `value="2025"`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(h, tt.path)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.contains)
		})
	}
}

func TestBookRules(t *testing.T) {
	rules := bookRules(testNow)

	tests := []struct {
		year  string
		valid bool
	}{
		{"1899", false},
		{"1900", true},
		{"2026", true},
		{"2027", false},
		{"19x5", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.year, func(t *testing.T) {
			assert.Equal(t, tt.valid, rules["year"](tt.year) == "")
		})
	}
}

func TestCoffeeRules(t *testing.T) {
	rules := coffeeRules()

	assert.NotEmpty(t, rules["name"]("A"))
	assert.NotEmpty(t, rules["name"]("   "))
	assert.Empty(t, rules["name"]("Latte"))

	for _, price := range []string{"0", "-1", "abc", ""} {
		assert.NotEmpty(t, rules["price"](price), "price %q", price)
	}
	for _, price := range []string{"3.5", ".5", "5.", "1e2"} {
		assert.Empty(t, rules["price"](price), "price %q", price)
	}

	assert.Empty(t, rules["description"](strings.Repeat("a", 500)))
	assert.NotEmpty(t, rules["description"](strings.Repeat("a", 501)))
}

func TestOrderRules(t *testing.T) {
	rules := orderRules(false)
	_, hasStatus := rules["status"]
	assert.False(t, hasStatus)
	assert.Contains(t, orderRules(true), "status")

	for _, q := range []string{"0", "-2", "1.5", ""} {
		assert.NotEmpty(t, rules["quantity"](q), "quantity %q", q)
	}
	assert.Empty(t, rules["quantity"]("3"))

	menu := coffeeRule([]models.Coffee{{ID: 1}, {ID: 2}})
	assert.Equal(t, noCoffeeMessage, menu(""))
	assert.NotEmpty(t, menu("3"))
	assert.Empty(t, menu("2"))

	assert.Empty(t, coffeeRule(nil)("3"))
}

func TestEditKey(t *testing.T) {
	assert.Equal(t, "/orders/4/edit", editKey("orders", 4))
	assert.Equal(t, "/books/10/edit", editKey("books", 10))
}

func TestRefreshRefetchesFreshList(t *testing.T) {
	var loads atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/books", func(w http.ResponseWriter, r *http.Request) {
		n := loads.Add(1)
		writeJSON(t, w, http.StatusOK, []models.Book{{ID: 1, Title: fmt.Sprintf("Edition %d", n)}})
	})
	h := newTestHandler(t, mux)

	assert.Contains(t, get(h, "/books").Body.String(), "Edition 1")
	assert.Contains(t, get(h, "/books").Body.String(), "Edition 1")
	assert.Equal(t, int32(1), loads.Load())

	assert.Contains(t, get(h, "/books?refresh=1").Body.String(), "Edition 2")
	assert.Equal(t, int32(2), loads.Load())
}

func TestNullRecordIsNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/coffees/42", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, nil)
	})
	h := newTestHandler(t, mux)

	rec := get(h, "/coffees/42")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Coffee not found")
	assert.NotContains(t, rec.Body.String(), "/coffees/0/edit")

	rec = get(h, "/coffees/42/edit")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Coffee not found")
	assert.NotContains(t, rec.Body.String(), `method="post"`)
}

func TestRefreshKeepsEditedDraft(t *testing.T) {
	var (
		mu    sync.Mutex
		title = "Dune"
		loads atomic.Int32
	)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/books/1", func(w http.ResponseWriter, r *http.Request) {
		loads.Add(1)
		mu.Lock()
		defer mu.Unlock()
		writeJSON(t, w, http.StatusOK, models.Book{ID: 1, Title: title, Author: "Frank Herbert", Year: 1965})
	})
	b := &browser{h: newTestHandler(t, mux)}

	rec := b.get("/books/1/edit")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="Dune"`)
	require.NotEmpty(t, b.cookies)

	rec = b.post("/books/1/edit", url.Values{
		"title":  {"Dune Messiah"},
		"author": {""},
		"year":   {"1969"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	mu.Lock()
	title = "Children of Dune"
	mu.Unlock()

	rec = b.get("/books/1/edit?refresh=1")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `value="Dune Messiah"`)
	assert.NotContains(t, body, `value="Children of Dune"`)
	assert.Equal(t, int32(2), loads.Load())
}

func TestValidateField(t *testing.T) {
	b := &browser{h: newTestHandler(t, http.NotFoundHandler())}

	require.Equal(t, http.StatusOK, b.get("/coffees/create").Code)

	rec := b.post("/validate", url.Values{"draft": {"/coffees/create"}, "field": {"price"}, "value": {"abc"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "The price must be a number", rec.Body.String())

	rec = b.post("/validate", url.Values{"draft": {"/coffees/create"}, "field": {"price"}, "value": {".5"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = b.post("/validate", url.Values{"draft": {"/books/create"}, "field": {"title"}, "value": {""}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = b.post("/validate", url.Values{"field": {"price"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
