package domain

import "github.com/google/uuid"

type UserProfile struct {
	ID        uuid.UUID
	Username  string
	Email     string
	FirstName string
	LastName  string
}
