package createorder

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/corray333/backend-labs/orderddd/internal/domain/ident"
	"github.com/corray333/backend-labs/orderddd/internal/domain/order"
	"github.com/corray333/backend-labs/orderddd/internal/transport/http/dto"
	"github.com/corray333/backend-labs/orderddd/internal/transport/http/response"
	"github.com/go-playground/validator/v10"
)

// service is an interface for the service layer.
type service interface {
	CreateOrder(ctx context.Context, userID ident.UserID, items []order.LineItem) (*order.Order, error)
}

// createOrderRequest represents a create order request.
type createOrderRequest struct {
	UserID string                `json:"userId" validate:"required"`
	Items  []dto.LineItemRequest `json:"items"  validate:"dive"`
}

// Validate validates the create order request.
func (r *createOrderRequest) Validate() error {
	return validator.New().Struct(r)
}

func (r *createOrderRequest) toModel() (ident.UserID, []order.LineItem, error) {
	userID, err := ident.NewUserID(r.UserID)
	if err != nil {
		return ident.UserID{}, nil, err
	}

	items := make([]order.LineItem, len(r.Items))
	for i := range r.Items {
		items[i], err = r.Items[i].ToModel()
		if err != nil {
			return ident.UserID{}, nil, err
		}
	}

	return userID, items, nil
}

// CreateOrder handles POST /api/orders.
func CreateOrder(w http.ResponseWriter, r *http.Request, service service) {
	req := createOrderRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, err)
		slog.Error("Error decoding request body for create order", "error", err)

		return
	}

	if err := req.Validate(); err != nil {
		response.BadRequest(w, err)
		slog.Error("Error validating request body for create order", "error", err)

		return
	}

	userID, items, err := req.toModel()
	if err != nil {
		response.WriteError(w, err)

		return
	}

	o, err := service.CreateOrder(r.Context(), userID, items)
	if err != nil {
		response.WriteError(w, err)

		return
	}

	response.WriteJSON(w, http.StatusCreated, dto.OrderFromModel(o))
}
