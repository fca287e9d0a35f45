package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/josh-kwaku/transfer-saga/internal/api"
	"github.com/josh-kwaku/transfer-saga/internal/domain"
)

type profileSource interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*domain.UserProfile, error)
}

type UserHandler struct {
	users profileSource
}

func NewUserHandler(users profileSource) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /users/{id}", h.GetProfile)
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	p, err := h.users.GetProfile(r.Context(), id)
	if err != nil {
		RespondDomainError(r.Context(), w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, api.FromProfile(p))
}
