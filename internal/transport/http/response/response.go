// Package response writes JSON bodies and maps service errors to status codes.
package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/corray333/backend-labs/orderddd/internal/dal/dalerr"
	"github.com/corray333/backend-labs/orderddd/internal/domain/domainerr"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// WriteJSON encodes body with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Error sending response", "error", err)
	}
}

// WriteError writes err with the status that matches its kind.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusOf(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "error", err)
		WriteJSON(w, status, ErrorBody{Error: http.StatusText(status)})

		return
	}

	WriteJSON(w, status, ErrorBody{Error: err.Error(), Kind: string(domainerr.KindOf(err))})
}

// BadRequest reports a malformed request body or query.
func BadRequest(w http.ResponseWriter, err error) {
	WriteJSON(w, http.StatusBadRequest, ErrorBody{Error: err.Error()})
}

func StatusOf(err error) int {
	switch {
	case errors.Is(err, dalerr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, dalerr.ErrConcurrentModification), errors.Is(err, dalerr.ErrDuplicate):
		return http.StatusConflict
	}

	switch domainerr.KindOf(err) {
	case domainerr.KindInvalidFormat,
		domainerr.KindNegativeAmount,
		domainerr.KindNegativeResult,
		domainerr.KindNegativeFactor,
		domainerr.KindCurrencyMismatch,
		domainerr.KindInvalidQuantity,
		domainerr.KindMissingField:
		return http.StatusBadRequest
	case domainerr.KindItemNotFound:
		return http.StatusNotFound
	case domainerr.KindInvalidStateTransition:
		return http.StatusConflict
	case domainerr.KindEmptyOrder:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
