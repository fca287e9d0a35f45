package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/josh-kwaku/transfer-saga/internal/auth"
)

func ownerFromPath(r *http.Request) (uuid.UUID, *AppError) {
	authUserID, ok := auth.UserID(r.Context())
	if !ok {
		return uuid.Nil, ErrMissingToken
	}

	userID, ok := pathID(r, "id")
	if !ok || userID != authUserID {
		return uuid.Nil, ErrResourceNotFound
	}

	return userID, nil
}

func pathID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
