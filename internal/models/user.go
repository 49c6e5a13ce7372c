package models

import (
	"time"

	"github.com/google/uuid"
)

// User is created on first sign-in from the identity provider's subject.
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Subject   string    `json:"-" db:"subject"`
	Email     *string   `json:"email,omitempty" db:"email"`
	Name      *string   `json:"name,omitempty" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Identity is what an authenticated token asserts about the caller.
type Identity struct {
	Subject string
	Email   string
	Name    string
}
