// Package users serves the /api/users routes.
package users

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/corray333/backend-labs/orderddd/internal/domain/ident"
	"github.com/corray333/backend-labs/orderddd/internal/domain/user"
	"github.com/corray333/backend-labs/orderddd/internal/transport/http/dto"
	"github.com/corray333/backend-labs/orderddd/internal/transport/http/response"
	"github.com/go-chi/chi/v5"
)

type service interface {
	RegisterUser(ctx context.Context, name user.Name, email user.Email) (*user.User, error)
	GetUser(ctx context.Context, id ident.UserID) (*user.User, error)
	Rename(ctx context.Context, id ident.UserID, name user.Name) (*user.User, error)
	ChangeEmail(ctx context.Context, id ident.UserID, email user.Email) (*user.User, error)
	Deactivate(ctx context.Context, id ident.UserID) (*user.User, error)
}

type registerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type renameRequest struct {
	Name string `json:"name"`
}

type changeEmailRequest struct {
	Email string `json:"email"`
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, err)
		slog.Error("Error decoding request body", "path", r.URL.Path, "error", err)

		return false
	}

	return true
}

func userID(w http.ResponseWriter, r *http.Request) (ident.UserID, bool) {
	id, err := ident.NewUserID(chi.URLParam(r, "userID"))
	if err != nil {
		response.WriteError(w, err)

		return ident.UserID{}, false
	}

	return id, true
}

func reply(w http.ResponseWriter, status int, u *user.User, err error) {
	if err != nil {
		response.WriteError(w, err)

		return
	}

	response.WriteJSON(w, status, dto.UserFromModel(u))
}

// Register handles POST /api/users.
func Register(w http.ResponseWriter, r *http.Request, service service) {
	req := registerRequest{}
	if !decode(w, r, &req) {
		return
	}

	name, err := user.NewName(req.Name)
	if err != nil {
		response.WriteError(w, err)

		return
	}
	email, err := user.NewEmail(req.Email)
	if err != nil {
		response.WriteError(w, err)

		return
	}

	u, err := service.RegisterUser(r.Context(), name, email)
	reply(w, http.StatusCreated, u, err)
}

// Get handles GET /api/users/{userID}.
func Get(w http.ResponseWriter, r *http.Request, service service) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	u, err := service.GetUser(r.Context(), id)
	reply(w, http.StatusOK, u, err)
}

// Rename handles PUT /api/users/{userID}/name.
func Rename(w http.ResponseWriter, r *http.Request, service service) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	req := renameRequest{}
	if !decode(w, r, &req) {
		return
	}

	name, err := user.NewName(req.Name)
	if err != nil {
		response.WriteError(w, err)

		return
	}

	u, err := service.Rename(r.Context(), id, name)
	reply(w, http.StatusOK, u, err)
}

// ChangeEmail handles PUT /api/users/{userID}/email.
func ChangeEmail(w http.ResponseWriter, r *http.Request, service service) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	req := changeEmailRequest{}
	if !decode(w, r, &req) {
		return
	}

	email, err := user.NewEmail(req.Email)
	if err != nil {
		response.WriteError(w, err)

		return
	}

	u, err := service.ChangeEmail(r.Context(), id, email)
	reply(w, http.StatusOK, u, err)
}

// Deactivate handles POST /api/users/{userID}/deactivate.
func Deactivate(w http.ResponseWriter, r *http.Request, service service) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	u, err := service.Deactivate(r.Context(), id)
	reply(w, http.StatusOK, u, err)
}
