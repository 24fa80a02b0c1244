// Package notify decides what the user is told after a request to the API:
// transient toasts for outcomes and confirmation dialogs for destructive actions.
package notify

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/iotcafe/backoffice/internal/apiclient"
)

// Level controls how a toast is styled
type Level string

const (
	LevelSuccess Level = "success"
	LevelDanger  Level = "danger"
	LevelInfo    Level = "info"
)

// Toast is a transient message shown on the next rendered page
type Toast struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Level   Level  `json:"level"`
}

// Kind classifies the outcome of an API call
type Kind int

const (
	Success Kind = iota
	NotFound
	Unprocessable
	HTTPFailure
	Unexpected
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case NotFound:
		return "not_found"
	case Unprocessable:
		return "unprocessable"
	case HTTPFailure:
		return "http_failure"
	default:
		return "unexpected"
	}
}

// Action names the operation a toast reports on
type Action string

const (
	ActionLoad   Action = "load"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Classify maps an API error to its outcome kind
func Classify(err error) Kind {
	if err == nil {
		return Success
	}
	code, ok := apiclient.StatusCode(err)
	if !ok {
		return Unexpected
	}
	switch code {
	case http.StatusNotFound:
		return NotFound
	case http.StatusUnprocessableEntity:
		return Unprocessable
	default:
		return HTTPFailure
	}
}

// Saved is the toast for a successful mutation
func Saved(entity string, action Action) Toast {
	name := capitalize(entity)
	switch action {
	case ActionCreate:
		return Toast{
			Title:   name + " created",
			Message: "The new " + entity + " has been saved.",
			Level:   LevelSuccess,
		}
	case ActionDelete:
		return Toast{
			Title:   name + " deleted",
			Message: "The " + entity + " has been removed.",
			Level:   LevelDanger,
		}
	default:
		return Toast{
			Title:   name + " updated",
			Message: "Your changes to the " + entity + " have been saved.",
			Level:   LevelSuccess,
		}
	}
}

// Failed is the toast for a failed API call. Unexpected errors are also logged.
func Failed(entity string, action Action, err error) Toast {
	switch Classify(err) {
	case NotFound:
		return Toast{
			Title:   capitalize(entity) + " not found",
			Message: "The " + entity + " you are trying to " + verb(action) + " could not be found.",
			Level:   LevelDanger,
		}
	case Unprocessable:
		return Toast{
			Title:   "Invalid data",
			Message: "Please check the information you entered and try again.",
			Level:   LevelDanger,
		}
	case HTTPFailure:
		return Toast{
			Title:   "Something went wrong",
			Message: "Please try again.",
			Level:   LevelDanger,
		}
	default:
		slog.Error("Unexpected API error", "entity", entity, "action", string(action), "err", err)
		return Toast{
			Title:   "Something went wrong",
			Message: "Please try again, or check the server log for details.",
			Level:   LevelDanger,
		}
	}
}

// Busy is the toast shown when a draft is submitted twice
func Busy() Toast {
	return Toast{
		Title:   "Still saving",
		Message: "Your previous submission is still being processed.",
		Level:   LevelInfo,
	}
}

// Confirm describes a confirmation dialog. Confirming posts to Action; cancelling
// goes back to CancelURL.
type Confirm struct {
	Title        string
	Body         string
	ConfirmLabel string
	CancelLabel  string
	Action       string
	CancelURL    string
	Danger       bool
}

// ConfirmDelete builds the dialog shown before a record is deleted
func ConfirmDelete(entity, action, cancelURL string) Confirm {
	return Confirm{
		Title:        "Do you want to delete this " + entity + "?",
		Body:         "Once this " + entity + " is deleted, it cannot be restored.",
		ConfirmLabel: "Delete",
		CancelLabel:  "Cancel",
		Action:       action,
		CancelURL:    cancelURL,
		Danger:       true,
	}
}

func verb(action Action) string {
	switch action {
	case ActionLoad:
		return "open"
	case ActionCreate:
		return "create"
	case ActionDelete:
		return "delete"
	default:
		return "edit"
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
