// Package orderitems serves the line item routes of a single order.
package orderitems

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/corray333/backend-labs/orderddd/internal/domain/ident"
	"github.com/corray333/backend-labs/orderddd/internal/domain/order"
	"github.com/corray333/backend-labs/orderddd/internal/transport/http/dto"
	"github.com/corray333/backend-labs/orderddd/internal/transport/http/response"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type service interface {
	AddItem(ctx context.Context, id ident.OrderID, item order.LineItem) (*order.Order, error)
	RemoveItem(ctx context.Context, id ident.OrderID, productID ident.ProductID) (*order.Order, error)
	ChangeItemQuantity(ctx context.Context, id ident.OrderID, productID ident.ProductID, quantity int) (*order.Order, error)
}

type changeQuantityRequest struct {
	Quantity int `json:"quantity" validate:"gt=0"`
}

func pathIDs(r *http.Request, withProduct bool) (ident.OrderID, ident.ProductID, error) {
	orderID, err := ident.NewOrderID(chi.URLParam(r, "orderID"))
	if err != nil || !withProduct {
		return orderID, ident.ProductID{}, err
	}
	productID, err := ident.NewProductID(chi.URLParam(r, "productID"))

	return orderID, productID, err
}

// AddItem handles POST /api/orders/{orderID}/items.
func AddItem(w http.ResponseWriter, r *http.Request, service service) {
	orderID, _, err := pathIDs(r, false)
	if err != nil {
		response.WriteError(w, err)

		return
	}

	req := dto.LineItemRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, err)
		slog.Error("Error decoding request body for add item", "error", err)

		return
	}
	if err := validator.New().Struct(req); err != nil {
		response.BadRequest(w, err)

		return
	}

	item, err := req.ToModel()
	if err != nil {
		response.WriteError(w, err)

		return
	}

	o, err := service.AddItem(r.Context(), orderID, item)
	if err != nil {
		response.WriteError(w, err)

		return
	}

	response.WriteJSON(w, http.StatusOK, dto.OrderFromModel(o))
}

// ChangeQuantity handles PUT /api/orders/{orderID}/items/{productID}.
func ChangeQuantity(w http.ResponseWriter, r *http.Request, service service) {
	orderID, productID, err := pathIDs(r, true)
	if err != nil {
		response.WriteError(w, err)

		return
	}

	req := changeQuantityRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, err)
		slog.Error("Error decoding request body for change quantity", "error", err)

		return
	}
	if err := validator.New().Struct(req); err != nil {
		response.BadRequest(w, err)

		return
	}

	o, err := service.ChangeItemQuantity(r.Context(), orderID, productID, req.Quantity)
	if err != nil {
		response.WriteError(w, err)

		return
	}

	response.WriteJSON(w, http.StatusOK, dto.OrderFromModel(o))
}

// RemoveItem handles DELETE /api/orders/{orderID}/items/{productID}.
func RemoveItem(w http.ResponseWriter, r *http.Request, service service) {
	orderID, productID, err := pathIDs(r, true)
	if err != nil {
		response.WriteError(w, err)

		return
	}

	o, err := service.RemoveItem(r.Context(), orderID, productID)
	if err != nil {
		response.WriteError(w, err)

		return
	}

	response.WriteJSON(w, http.StatusOK, dto.OrderFromModel(o))
}
