package notify

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iotcafe/backoffice/internal/apiclient"
)

func statusErr(code int) error {
	return fmt.Errorf("update failed: %w", &apiclient.StatusError{Method: http.MethodPatch, Path: "/books/1", StatusCode: code})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Kind
	}{
		{"nil", nil, Success},
		{"not found", statusErr(http.StatusNotFound), NotFound},
		{"unprocessable", statusErr(http.StatusUnprocessableEntity), Unprocessable},
		{"server error", statusErr(http.StatusInternalServerError), HTTPFailure},
		{"bad request", statusErr(http.StatusBadRequest), HTTPFailure},
		{"transport", errors.New("connection refused"), Unexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.err))
		})
	}
}

func TestFailed(t *testing.T) {
	toast := Failed("coffee", ActionDelete, statusErr(http.StatusNotFound))
	assert.Equal(t, "Coffee not found", toast.Title)
	assert.Contains(t, toast.Message, "trying to delete")
	assert.Equal(t, LevelDanger, toast.Level)

	toast = Failed("book", ActionUpdate, statusErr(http.StatusUnprocessableEntity))
	assert.Equal(t, "Invalid data", toast.Title)

	toast = Failed("order", ActionUpdate, statusErr(http.StatusBadGateway))
	assert.Equal(t, "Please try again.", toast.Message)

	toast = Failed("order", ActionCreate, errors.New("dial tcp: refused"))
	assert.Contains(t, toast.Message, "server log")
}

func TestSaved(t *testing.T) {
	assert.Equal(t, "Book created", Saved("book", ActionCreate).Title)
	assert.Equal(t, "Order updated", Saved("order", ActionUpdate).Title)

	deleted := Saved("coffee", ActionDelete)
	assert.Equal(t, "Coffee deleted", deleted.Title)
	assert.Equal(t, LevelDanger, deleted.Level)
}

func TestConfirmDelete(t *testing.T) {
	c := ConfirmDelete("order", "/orders/3/delete", "/orders/3/edit")
	assert.Equal(t, "Do you want to delete this order?", c.Title)
	assert.Equal(t, "Delete", c.ConfirmLabel)
	assert.Equal(t, "Cancel", c.CancelLabel)
	assert.Equal(t, "/orders/3/delete", c.Action)
	assert.True(t, c.Danger)
}
