package listorders

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/corray333/backend-labs/orderddd/internal/domain/ident"
	"github.com/corray333/backend-labs/orderddd/internal/domain/order"
	"github.com/corray333/backend-labs/orderddd/internal/service/models/orderquery"
	"github.com/corray333/backend-labs/orderddd/internal/transport/http/dto"
	"github.com/corray333/backend-labs/orderddd/internal/transport/http/response"
	"github.com/gorilla/schema"
)

type service interface {
	ListOrders(ctx context.Context, q orderquery.Query) ([]*order.Order, error)
}

var decoder = schema.NewDecoder()

type queryOrdersRequest struct {
	UserIDs  []string `schema:"userIds,omitempty"`
	Statuses []string `schema:"statuses,omitempty"`
	Limit    int      `schema:"limit,omitempty"`
	Offset   int      `schema:"offset,omitempty"`
}

func (q *queryOrdersRequest) ToModel() (orderquery.Query, error) {
	model := orderquery.Query{Limit: q.Limit, Offset: q.Offset}

	for _, raw := range q.UserIDs {
		id, err := ident.NewUserID(raw)
		if err != nil {
			return orderquery.Query{}, err
		}
		model.UserIDs = append(model.UserIDs, id)
	}
	for _, raw := range q.Statuses {
		s, err := order.ParseStatus(raw)
		if err != nil {
			return orderquery.Query{}, err
		}
		model.Statuses = append(model.Statuses, s)
	}

	return model, nil
}

// ListOrders handles GET /api/orders.
func ListOrders(w http.ResponseWriter, r *http.Request, service service) {
	query := &queryOrdersRequest{}
	if err := decoder.Decode(query, r.URL.Query()); err != nil {
		response.BadRequest(w, err)
		slog.Error("Error decoding request", "error", err)

		return
	}

	model, err := query.ToModel()
	if err != nil {
		response.WriteError(w, err)

		return
	}

	orders, err := service.ListOrders(r.Context(), model)
	if err != nil {
		response.WriteError(w, err)

		return
	}

	response.WriteJSON(w, http.StatusOK, dto.OrdersFromModels(orders))
}
