package orderlifecycle

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/orderddd/internal/domain/ident"
	"github.com/corray333/backend-labs/orderddd/internal/domain/order"
	"github.com/corray333/backend-labs/orderddd/internal/transport/http/dto"
	"github.com/corray333/backend-labs/orderddd/internal/transport/http/response"
	"github.com/go-chi/chi/v5"
)

type service interface {
	ConfirmOrder(ctx context.Context, id ident.OrderID) (*order.Order, error)
	CancelOrder(ctx context.Context, id ident.OrderID) (*order.Order, error)
}

// Confirm handles POST /api/orders/{orderID}/confirm.
func Confirm(w http.ResponseWriter, r *http.Request, service service) {
	transition(w, r, service.ConfirmOrder)
}

// Cancel handles POST /api/orders/{orderID}/cancel.
func Cancel(w http.ResponseWriter, r *http.Request, service service) {
	transition(w, r, service.CancelOrder)
}

func transition(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, id ident.OrderID) (*order.Order, error),
) {
	id, err := ident.NewOrderID(chi.URLParam(r, "orderID"))
	if err != nil {
		response.WriteError(w, err)

		return
	}

	o, err := apply(r.Context(), id)
	if err != nil {
		response.WriteError(w, err)

		return
	}

	response.WriteJSON(w, http.StatusOK, dto.OrderFromModel(o))
}
