package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/iotcafe/backoffice/internal/apiclient"
	"github.com/iotcafe/backoffice/internal/fetch"
	"github.com/iotcafe/backoffice/internal/form"
	"github.com/iotcafe/backoffice/internal/models"
	"github.com/iotcafe/backoffice/internal/notify"
)

const maxDescription = 500

func coffeeRules() form.Rules {
	return form.Rules{
		"name": form.Chain(
			form.Required("Please enter the coffee name"),
			form.MinLength(2, "The name must be at least 2 characters"),
		),
		"price": form.Chain(
			form.Required("Please enter a price"),
			form.Numeric("The price must be a number"),
			form.GreaterThan(0, "The price must be greater than 0"),
		),
		"description": form.MaxLength(maxDescription, fmt.Sprintf("The description must be at most %d characters", maxDescription)),
	}
}

func coffeeDefaults() url.Values {
	return url.Values{
		"name":        {""},
		"price":       {""},
		"description": {""},
	}
}

func coffeeValues(c *models.Coffee) url.Values {
	return url.Values{
		"name":        {c.Name},
		"price":       {strconv.FormatFloat(c.Price, 'f', -1, 64)},
		"description": {c.Description},
	}
}

func coffeeInputFrom(v url.Values) models.CoffeeInput {
	price, _ := strconv.ParseFloat(strings.TrimSpace(v.Get("price")), 64)
	return models.CoffeeInput{
		Name:        v.Get("name"),
		Price:       price,
		Description: v.Get("description"),
	}
}

func (h *Handler) HandleCoffees(w http.ResponseWriter, r *http.Request) {
	p := &page{Title: "Coffees", Section: "coffee"}
	snap := h.mount(r, apiclient.CoffeesPath, p)

	coffees, err := fetch.Decode[[]models.Coffee](snap)
	if err != nil {
		p.LoadError = err
	}
	if coffees != nil {
		p.Data = *coffees
	}
	h.render(w, r, http.StatusOK, "coffee_list.html", p)
}

func (h *Handler) HandleCoffee(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}

	p := &page{Title: "Coffee", Section: "coffee", ID: id}
	coffee, status := loadRecord[models.Coffee](h, r, "coffee", apiclient.CoffeePath(id), p)
	if coffee != nil {
		p.Title = coffee.Name
		p.Data = coffee
	}
	h.render(w, r, status, "coffee_detail.html", p)
}

func (h *Handler) HandleCoffeeCreate(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "coffee_form.html", &page{
		Title:   "New coffee",
		Section: "coffee",
		Action:  r.URL.Path,
		Form:    h.coffeeCreateDraft(r),
	})
}

func (h *Handler) HandleCoffeeCreateSubmit(w http.ResponseWriter, r *http.Request) {
	if !submitted(w, r) {
		return
	}
	draft := h.coffeeCreateDraft(r)
	draft.Bind(r.PostForm)
	p := &page{Title: "New coffee", Section: "coffee", Action: r.URL.Path, Form: draft}

	var created *models.Coffee
	h.submit(w, r,
		mutation{entity: "coffee", action: notify.ActionCreate, draftKey: r.URL.Path, forget: []string{apiclient.CoffeesPath}},
		draft,
		func(ctx context.Context, v url.Values) error {
			var err error
			created, err = h.client.CreateCoffee(ctx, coffeeInputFrom(v))
			return err
		},
		func() string {
			if created != nil && created.ID > 0 {
				return fmt.Sprintf("/coffees/%d", created.ID)
			}
			return "/coffees"
		},
		func(status int) { h.render(w, r, status, "coffee_form.html", p) },
	)
}

func (h *Handler) coffeeCreateDraft(r *http.Request) *form.Form {
	return sessionFrom(r).Draft(r.URL.Path, func() *form.Form {
		return form.New(coffeeDefaults(), coffeeRules())
	})
}

func (h *Handler) HandleCoffeeEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}

	p := &page{Title: "Edit coffee", Section: "coffee", ID: id, Action: r.URL.Path}
	draft, status := h.coffeeEditDraft(r, id, p)
	if draft.Seeded() {
		p.Form = draft
	}
	h.render(w, r, status, "coffee_form.html", p)
}

func (h *Handler) HandleCoffeeEditSubmit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if !submitted(w, r) {
		return
	}

	p := &page{Title: "Edit coffee", Section: "coffee", ID: id, Action: r.URL.Path}
	draft, status := h.coffeeEditDraft(r, id, p)
	if !draft.Seeded() {
		h.render(w, r, status, "coffee_form.html", p)
		return
	}
	p.Form = draft
	draft.Bind(r.PostForm)

	h.submit(w, r,
		mutation{
			entity:   "coffee",
			action:   notify.ActionUpdate,
			draftKey: r.URL.Path,
			forget:   []string{apiclient.CoffeesPath, apiclient.CoffeePath(id)},
		},
		draft,
		func(ctx context.Context, v url.Values) error {
			_, err := h.client.UpdateCoffee(ctx, id, coffeeInputFrom(v))
			return err
		},
		func() string { return fmt.Sprintf("/coffees/%d", id) },
		func(status int) { h.render(w, r, status, "coffee_form.html", p) },
	)
}

func (h *Handler) coffeeEditDraft(r *http.Request, id int, p *page) (*form.Form, int) {
	draft := sessionFrom(r).Draft(editKey("coffees", id), func() *form.Form {
		return form.New(coffeeDefaults(), coffeeRules())
	})

	coffee, status := loadRecord[models.Coffee](h, r, "coffee", apiclient.CoffeePath(id), p)
	if coffee != nil {
		draft.Seed(coffeeValues(coffee))
	}
	return draft, status
}

func (h *Handler) HandleCoffeeDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	confirm := notify.ConfirmDelete("coffee", r.URL.Path, editKey("coffees", id))
	h.render(w, r, http.StatusOK, "confirm.html", &page{Title: confirm.Title, Section: "coffee", ID: id, Confirm: &confirm})
}

func (h *Handler) HandleCoffeeDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	h.deletion(w, r,
		mutation{
			entity:   "coffee",
			action:   notify.ActionDelete,
			draftKey: r.URL.Path,
			forget:   []string{apiclient.CoffeesPath, apiclient.CoffeePath(id)},
		},
		func(ctx context.Context) error { return h.client.DeleteCoffee(ctx, id) },
		"/coffees",
		notify.ConfirmDelete("coffee", r.URL.Path, editKey("coffees", id)),
	)
}
