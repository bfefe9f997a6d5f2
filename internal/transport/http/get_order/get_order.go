package getorder

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
	GetOrder(ctx context.Context, id ident.OrderID) (*order.Order, error)
}

// GetOrder handles GET /api/orders/{orderID}.
func GetOrder(w http.ResponseWriter, r *http.Request, service service) {
	id, err := ident.NewOrderID(chi.URLParam(r, "orderID"))
	if err != nil {
		response.WriteError(w, err)

		return
	}

	o, err := service.GetOrder(r.Context(), id)
	if err != nil {
		response.WriteError(w, err)

		return
	}

	response.WriteJSON(w, http.StatusOK, dto.OrderFromModel(o))
}
