// ABOUTME: Request and response shapes for the users service
// ABOUTME: Validation rules live in struct tags checked by go-playground/validator

package users

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/2389/sml-gateway/internal/store"
)

// CreateUserRequest creates an account.
type CreateUserRequest struct {
	Email    string   `json:"email" validate:"required,email,max=254"`
	Name     string   `json:"name" validate:"required,min=2,max=100"`
	Password string   `json:"password" validate:"required,min=8,max=72"`
	Roles    []string `json:"roles" validate:"omitempty,dive,oneof=member admin owner"`
}

// UpdateUserRequest changes an account. Omitted fields are left unchanged.
type UpdateUserRequest struct {
	Name     *string  `json:"name" validate:"omitempty,min=2,max=100"`
	Password *string  `json:"password" validate:"omitempty,min=8,max=72"`
	Roles    []string `json:"roles" validate:"omitempty,dive,oneof=member admin owner"`
}

// LoginRequest exchanges credentials for a bearer token.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// User is the public view of an account. It never carries the password hash.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LoginResponse carries a freshly minted token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
}

func toUser(u *store.User) *User {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return &User{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Roles:     roles,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// newValidator reports field errors under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
