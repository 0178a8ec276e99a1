// ABOUTME: Store interfaces and data types for sml-gateway persistence
// ABOUTME: Defines User, Execution, Notification and the interfaces over them

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// User is an account that can authenticate against the gateway.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserUpdate carries the mutable user fields. Nil fields are left unchanged.
type UserUpdate struct {
	Name         *string
	PasswordHash *string
	Roles        []string // nil leaves roles unchanged
}

// Execution outcomes recorded in the audit trail.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeDenied  = "denied"
	OutcomeInvalid = "invalid"
)

// Execution is one audited SML operation call.
type Execution struct {
	ID        string
	Path      string
	ActorID   string // empty for anonymous callers
	TraceID   string
	Outcome   string
	ErrorCode string
	Duration  time.Duration
	Timestamp time.Time
}

// Notification is a message delivered to a user.
type Notification struct {
	ID        string
	UserID    string
	Kind      string
	Message   string
	CreatedAt time.Time
}

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context, limit int) ([]*User, error)
	UpdateUser(ctx context.Context, id string, update UserUpdate) (*User, error)
	DeleteUser(ctx context.Context, id string) error
}

// ExecutionStore persists the operation audit trail.
type ExecutionStore interface {
	RecordExecution(ctx context.Context, e *Execution) error
	ListExecutions(ctx context.Context, limit int) ([]*Execution, error)
}

// NotificationStore persists notifications.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *Notification) error
	ListNotifications(ctx context.Context, userID string, limit int) ([]*Notification, error)
}

// Store is the full persistence surface.
type Store interface {
	UserStore
	ExecutionStore
	NotificationStore
	Ping(ctx context.Context) error
	Close() error
}
