// ABOUTME: Account service: CRUD, authentication, and identity lookup
// ABOUTME: Every method runs through the wrapper so errors leave as *apperr.Error

package users

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/2389/sml-gateway/internal/apperr"
	"github.com/2389/sml-gateway/internal/auth"
	"github.com/2389/sml-gateway/internal/events"
	"github.com/2389/sml-gateway/internal/reqctx"
	"github.com/2389/sml-gateway/internal/store"
	"github.com/2389/sml-gateway/internal/wrap"
)

// Event paths published by the service.
const (
	EventCreated = "data.models.User.created"
	EventUpdated = "data.models.User.updated"
	EventDeleted = "data.models.User.deleted"
)

// DefaultRole is assigned when a create request names no roles.
const DefaultRole = "member"

// Publisher delivers domain events. *events.Bus satisfies it.
type Publisher interface {
	Publish(ctx context.Context, path string, payload map[string]any) (*events.Event, error)
}

// TokenIssuer mints bearer tokens. *auth.JWTVerifier satisfies it.
type TokenIssuer interface {
	Generate(id *auth.Identity, ttl time.Duration) (string, error)
}

// Service manages accounts.
type Service struct {
	store     store.UserStore
	issuer    TokenIssuer
	tokenTTL  time.Duration
	publisher Publisher
	validate  *validator.Validate
	wrap      *wrap.Wrapper
	logger    *slog.Logger
}

// Config holds the Service dependencies. Publisher and Issuer may be nil.
type Config struct {
	Store     store.UserStore
	Issuer    TokenIssuer
	TokenTTL  time.Duration
	Publisher Publisher
	Wrapper   *wrap.Wrapper
	Logger    *slog.Logger
}

// NewService creates a Service.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	w := cfg.Wrapper
	if w == nil {
		w = wrap.New("users.service", logger)
	}
	return &Service{
		store:     cfg.Store,
		issuer:    cfg.Issuer,
		tokenTTL:  cfg.TokenTTL,
		publisher: cfg.Publisher,
		validate:  newValidator(),
		wrap:      w,
		logger:    logger.With("component", "users"),
	}
}

var _ reqctx.IdentityLookup = (*Service)(nil)

// Create validates req, hashes the password, and stores the account.
func (s *Service) Create(ctx context.Context, req CreateUserRequest) (*User, error) {
	return wrap.Call(ctx, s.wrap, "Create", func(ctx context.Context) (*User, error) {
		if err := s.validate.Struct(req); err != nil {
			return nil, err
		}
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			return nil, err
		}
		roles := req.Roles
		if len(roles) == 0 {
			roles = []string{DefaultRole}
		}

		now := time.Now().UTC()
		u := &store.User{
			ID:           uuid.New().String(),
			Email:        req.Email,
			Name:         req.Name,
			PasswordHash: hash,
			Roles:        roles,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.store.CreateUser(ctx, u); err != nil {
			return nil, err
		}

		created, err := s.store.GetUser(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		s.publish(ctx, EventCreated, map[string]any{"id": created.ID, "email": created.Email, "name": created.Name})
		return toUser(created), nil
	})
}

// Get returns the account with id.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return wrap.Call(ctx, s.wrap, "Get", func(ctx context.Context) (*User, error) {
		u, err := s.get(ctx, id)
		if err != nil {
			return nil, err
		}
		return toUser(u), nil
	})
}

// GetByEmail returns the account with email.
func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return wrap.Call(ctx, s.wrap, "GetByEmail", func(ctx context.Context) (*User, error) {
		u, err := s.store.GetUserByEmail(ctx, email)
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFoundf("user with email %s not found", email)
		}
		if err != nil {
			return nil, err
		}
		return toUser(u), nil
	})
}

// List returns up to limit accounts, oldest first.
func (s *Service) List(ctx context.Context, limit int) ([]*User, error) {
	return wrap.Call(ctx, s.wrap, "List", func(ctx context.Context) ([]*User, error) {
		list, err := s.store.ListUsers(ctx, limit)
		if err != nil {
			return nil, err
		}
		out := make([]*User, 0, len(list))
		for _, u := range list {
			out = append(out, toUser(u))
		}
		return out, nil
	})
}

// Update applies req to the account with id.
func (s *Service) Update(ctx context.Context, id string, req UpdateUserRequest) (*User, error) {
	return wrap.Call(ctx, s.wrap, "Update", func(ctx context.Context) (*User, error) {
		if err := s.validate.Struct(req); err != nil {
			return nil, err
		}

		update := store.UserUpdate{Name: req.Name, Roles: req.Roles}
		changed := make([]string, 0, 3)
		if req.Name != nil {
			changed = append(changed, "name")
		}
		if req.Roles != nil {
			changed = append(changed, "roles")
		}
		if req.Password != nil {
			hash, err := auth.HashPassword(*req.Password)
			if err != nil {
				return nil, err
			}
			update.PasswordHash = &hash
			changed = append(changed, "password")
		}

		u, err := s.store.UpdateUser(ctx, id, update)
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFoundf("user %s not found", id)
		}
		if err != nil {
			return nil, err
		}
		s.publish(ctx, EventUpdated, map[string]any{"id": id, "fields": changed})
		return toUser(u), nil
	})
}

// Delete removes the account with id.
func (s *Service) Delete(ctx context.Context, id string) error {
	return wrap.Do(ctx, s.wrap, "Delete", func(ctx context.Context) error {
		err := s.store.DeleteUser(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFoundf("user %s not found", id)
		}
		if err != nil {
			return err
		}
		s.publish(ctx, EventDeleted, map[string]any{"id": id})
		return nil
	})
}

// Authenticate checks credentials and mints a token. Unknown emails and
// wrong passwords fail identically.
func (s *Service) Authenticate(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	return wrap.Call(ctx, s.wrap, "Authenticate", func(ctx context.Context) (*LoginResponse, error) {
		if err := s.validate.Struct(req); err != nil {
			return nil, err
		}
		if s.issuer == nil {
			return nil, errors.New("token issuer not configured")
		}

		u, err := s.store.GetUserByEmail(ctx, req.Email)
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Unauthorized("invalid email or password")
		}
		if err != nil {
			return nil, err
		}
		if err := auth.CheckPassword(u.PasswordHash, req.Password); err != nil {
			return nil, apperr.Unauthorized("invalid email or password")
		}

		expiresAt := time.Now().Add(s.tokenTTL).UTC()
		token, err := s.issuer.Generate(identityOf(u), s.tokenTTL)
		if err != nil {
			return nil, err
		}
		s.logger.Info("user authenticated", "user_id", u.ID)
		return &LoginResponse{Token: token, ExpiresAt: expiresAt, User: toUser(u)}, nil
	})
}

// LookupIdentity returns the current identity of user id.
func (s *Service) LookupIdentity(ctx context.Context, id string) (*auth.Identity, error) {
	return wrap.Call(ctx, s.wrap, "LookupIdentity", func(ctx context.Context) (*auth.Identity, error) {
		u, err := s.get(ctx, id)
		if err != nil {
			return nil, err
		}
		return identityOf(u), nil
	})
}

func (s *Service) get(ctx context.Context, id string) (*store.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFoundf("user %s not found", id)
	}
	return u, err
}

// publish emits a domain event. Failures are logged, never returned.
func (s *Service) publish(ctx context.Context, path string, payload map[string]any) {
	if s.publisher == nil {
		return
	}
	if events.TraceIDFrom(ctx) == "" {
		if rc := reqctx.From(ctx); rc != nil {
			ctx = events.WithTraceID(ctx, rc.RequestID)
		}
	}
	if _, err := s.publisher.Publish(ctx, path, payload); err != nil {
		s.logger.Warn("failed to publish event", "path", path, "error", err)
	}
}

func identityOf(u *store.User) *auth.Identity {
	return &auth.Identity{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Roles: u.Roles,
	}
}
