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

const maxNotes = 500

const noCoffeeMessage = "Please select a coffee"

func orderRules(edit bool) form.Rules {
	rules := form.Rules{
		"coffee_id": form.Required(noCoffeeMessage),
		"quantity": form.Chain(
			form.Required("Please enter a quantity"),
			form.Integer("The quantity must be a whole number"),
			form.GreaterThan(0, "The quantity must be greater than 0"),
		),
		"notes": form.MaxLength(maxNotes, fmt.Sprintf("The notes must be at most %d characters", maxNotes)),
	}
	if edit {
		rules["status"] = form.Required("Please enter a status")
	}
	return rules
}

// coffeeRule limits coffee_id to the coffees currently on the menu. Until the
// menu has loaded only a selection is required.
func coffeeRule(coffees []models.Coffee) form.Rule {
	if coffees == nil {
		return form.Required(noCoffeeMessage)
	}
	ids := make([]string, 0, len(coffees))
	for _, c := range coffees {
		ids = append(ids, strconv.Itoa(c.ID))
	}
	return form.Chain(
		form.Required(noCoffeeMessage),
		form.OneOf(ids, "The selected coffee is no longer on the menu"),
	)
}

func orderDefaults() url.Values {
	return url.Values{
		"coffee_id": {""},
		"quantity":  {"1"},
		"notes":     {""},
	}
}

func orderValues(o *models.Order) url.Values {
	return url.Values{
		"coffee_id": {strconv.Itoa(o.CoffeeID)},
		"quantity":  {strconv.Itoa(o.Quantity)},
		"status":    {o.Status},
		"notes":     {o.Notes},
	}
}

func orderCreateFrom(v url.Values) models.OrderCreate {
	coffeeID, _ := strconv.Atoi(v.Get("coffee_id"))
	quantity, _ := strconv.Atoi(strings.TrimSpace(v.Get("quantity")))
	return models.OrderCreate{
		CoffeeID: coffeeID,
		Quantity: quantity,
		Notes:    v.Get("notes"),
	}
}

func orderUpdateFrom(v url.Values) models.OrderUpdate {
	coffeeID, _ := strconv.Atoi(v.Get("coffee_id"))
	quantity, _ := strconv.Atoi(strings.TrimSpace(v.Get("quantity")))
	return models.OrderUpdate{
		CoffeeID: coffeeID,
		Quantity: quantity,
		Status:   strings.TrimSpace(v.Get("status")),
		Notes:    v.Get("notes"),
	}
}

func (h *Handler) HandleOrders(w http.ResponseWriter, r *http.Request) {
	p := &page{Title: "Orders", Section: "order"}
	snap := h.mount(r, apiclient.OrdersPath, p)

	orders, err := fetch.Decode[[]models.Order](snap)
	if err != nil {
		p.LoadError = err
	}
	if orders != nil {
		p.Data = *orders
	}
	h.render(w, r, http.StatusOK, "order_list.html", p)
}

func (h *Handler) HandleOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}

	p := &page{Title: "Order", Section: "order", ID: id}
	order, status := loadRecord[models.Order](h, r, "order", apiclient.OrderPath(id), p)
	if order != nil {
		p.Title = fmt.Sprintf("Order #%d", order.ID)
		p.Data = order
	}
	h.render(w, r, status, "order_detail.html", p)
}

// loadCoffees fills the coffee select of an order form. A failure here does
// not block the form; it only adds a toast.
func (h *Handler) loadCoffees(ctx context.Context, p *page) []models.Coffee {
	snap := h.cache.Mount(ctx, apiclient.CoffeesPath, h.fetchWait)
	coffees, err := fetch.Decode[[]models.Coffee](snap)
	if err != nil || coffees == nil {
		if snap.Err != nil && !snap.HasData() {
			p.Toasts = append(p.Toasts, notify.Failed("coffee", notify.ActionLoad, snap.Err))
		}
		return nil
	}
	p.Coffees = *coffees
	return *coffees
}

func (h *Handler) HandleOrderCreate(w http.ResponseWriter, r *http.Request) {
	p := &page{Title: "New order", Section: "order", Action: r.URL.Path}
	coffees := h.loadCoffees(r.Context(), p)
	draft := h.orderCreateDraft(r)
	draft.SetRule("coffee_id", coffeeRule(coffees))
	p.Form = draft
	h.render(w, r, http.StatusOK, "order_form.html", p)
}

func (h *Handler) HandleOrderCreateSubmit(w http.ResponseWriter, r *http.Request) {
	if !submitted(w, r) {
		return
	}
	p := &page{Title: "New order", Section: "order", Action: r.URL.Path}
	coffees := h.loadCoffees(r.Context(), p)
	draft := h.orderCreateDraft(r)
	draft.SetRule("coffee_id", coffeeRule(coffees))
	draft.Bind(r.PostForm)
	p.Form = draft

	var created *models.Order
	h.submit(w, r,
		mutation{entity: "order", action: notify.ActionCreate, draftKey: r.URL.Path, forget: []string{apiclient.OrdersPath}},
		draft,
		func(ctx context.Context, v url.Values) error {
			var err error
			created, err = h.client.CreateOrder(ctx, orderCreateFrom(v))
			return err
		},
		func() string {
			if created != nil && created.ID > 0 {
				return fmt.Sprintf("/orders/%d", created.ID)
			}
			return "/orders"
		},
		func(status int) { h.render(w, r, status, "order_form.html", p) },
	)
}

func (h *Handler) orderCreateDraft(r *http.Request) *form.Form {
	return sessionFrom(r).Draft(r.URL.Path, func() *form.Form {
		return form.New(orderDefaults(), orderRules(false))
	})
}

func (h *Handler) HandleOrderEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}

	p := &page{Title: "Edit order", Section: "order", ID: id, Action: r.URL.Path, Statuses: models.OrderStatuses}
	draft, status := h.orderEditDraft(r, id, p)
	if draft.Seeded() {
		p.Form = draft
	}
	h.render(w, r, status, "order_form.html", p)
}

func (h *Handler) HandleOrderEditSubmit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if !submitted(w, r) {
		return
	}

	p := &page{Title: "Edit order", Section: "order", ID: id, Action: r.URL.Path, Statuses: models.OrderStatuses}
	draft, status := h.orderEditDraft(r, id, p)
	if !draft.Seeded() {
		h.render(w, r, status, "order_form.html", p)
		return
	}
	p.Form = draft
	draft.Bind(r.PostForm)

	h.submit(w, r,
		mutation{
			entity:   "order",
			action:   notify.ActionUpdate,
			draftKey: r.URL.Path,
			forget:   []string{apiclient.OrdersPath, apiclient.OrderPath(id)},
		},
		draft,
		func(ctx context.Context, v url.Values) error {
			_, err := h.client.UpdateOrder(ctx, id, orderUpdateFrom(v))
			return err
		},
		func() string { return fmt.Sprintf("/orders/%d", id) },
		func(status int) { h.render(w, r, status, "order_form.html", p) },
	)
}

func (h *Handler) orderEditDraft(r *http.Request, id int, p *page) (*form.Form, int) {
	coffees := h.loadCoffees(r.Context(), p)
	draft := sessionFrom(r).Draft(editKey("orders", id), func() *form.Form {
		return form.New(orderDefaults(), orderRules(true))
	})
	draft.SetRule("coffee_id", coffeeRule(coffees))

	order, status := loadRecord[models.Order](h, r, "order", apiclient.OrderPath(id), p)
	if order != nil {
		draft.Seed(orderValues(order))
	}
	return draft, status
}

func (h *Handler) HandleOrderDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	confirm := notify.ConfirmDelete("order", r.URL.Path, editKey("orders", id))
	h.render(w, r, http.StatusOK, "confirm.html", &page{Title: confirm.Title, Section: "order", ID: id, Confirm: &confirm})
}

func (h *Handler) HandleOrderDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	h.deletion(w, r,
		mutation{
			entity:   "order",
			action:   notify.ActionDelete,
			draftKey: r.URL.Path,
			forget:   []string{apiclient.OrdersPath, apiclient.OrderPath(id)},
		},
		func(ctx context.Context) error { return h.client.DeleteOrder(ctx, id) },
		"/orders",
		notify.ConfirmDelete("order", r.URL.Path, editKey("orders", id)),
	)
}
