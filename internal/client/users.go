package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/josh-kwaku/transfer-saga/internal/api"
	"github.com/josh-kwaku/transfer-saga/internal/domain"
)

// UsersClient reads profiles from the user-identity service.
type UsersClient struct {
	*base
}

func NewUsersClient(cfg Config) *UsersClient {
	return &UsersClient{base: newBase("users", cfg)}
}

func (c *UsersClient) GetProfile(ctx context.Context, id uuid.UUID) (*domain.UserProfile, error) {
	var out api.UserProfile
	if err := c.do(ctx, http.MethodGet, "/users/"+id.String(), nil, &out); err != nil {
		return nil, fmt.Errorf("GetProfile: %w", err)
	}
	return out.Domain(), nil
}
