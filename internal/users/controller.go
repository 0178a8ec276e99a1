// ABOUTME: HTTP controller exposing the users service under /api
// ABOUTME: Mutations require an admin identity; users may read and edit themselves

package users

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/2389/sml-gateway/internal/apperr"
	"github.com/2389/sml-gateway/internal/auth"
	"github.com/2389/sml-gateway/internal/reqctx"
	"github.com/2389/sml-gateway/internal/wrap"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Controller serves the users API.
type Controller struct {
	svc  *Service
	wrap *wrap.Wrapper
}

// NewController creates a Controller. A nil wrapper gets a default one.
func NewController(svc *Service, w *wrap.Wrapper) *Controller {
	if w == nil {
		w = wrap.New("users.controller", nil)
	}
	return &Controller{svc: svc, wrap: w}
}

// Routes mounts the controller on r.
func (c *Controller) Routes(r chi.Router) {
	r.Post("/api/auth/login", c.wrap.Controller("Login", c.login))
	r.Get("/api/me", c.wrap.Controller("Me", c.me))

	r.Route("/api/users", func(r chi.Router) {
		r.Post("/", c.wrap.Controller("Create", c.create))
		r.Get("/", c.wrap.Controller("List", c.list))
		r.Get("/{id}", c.wrap.Controller("Get", c.get))
		r.Patch("/{id}", c.wrap.Controller("Update", c.update))
		r.Delete("/{id}", c.wrap.Controller("Delete", c.delete))
	})
}

// MeResponse is the caller's identity plus their account when one exists.
type MeResponse struct {
	Identity *auth.Identity `json:"identity"`
	User     *User          `json:"user,omitempty"`
}

func (c *Controller) login(w http.ResponseWriter, r *http.Request) (any, error) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return nil, err
	}
	return c.svc.Authenticate(r.Context(), req)
}

func (c *Controller) me(_ http.ResponseWriter, r *http.Request) (any, error) {
	id := reqctx.UserFrom(r.Context())
	if id.IsAnonymous() {
		return nil, apperr.Unauthorized("authentication required")
	}
	resp := MeResponse{Identity: id}
	u, err := c.svc.Get(r.Context(), id.ID)
	var appErr *apperr.Error
	switch {
	case err == nil:
		resp.User = u
	case errors.As(err, &appErr) && appErr.Code == apperr.CodeNotFound:
		// Token subjects without an account still see their identity.
	default:
		return nil, err
	}
	return resp, nil
}

func (c *Controller) create(w http.ResponseWriter, r *http.Request) (any, error) {
	if err := requireAdmin(r); err != nil {
		return nil, err
	}
	var req CreateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return nil, err
	}
	u, err := c.svc.Create(r.Context(), req)
	if err != nil {
		return nil, err
	}
	return wrap.Created(u), nil
}

func (c *Controller) list(_ http.ResponseWriter, r *http.Request) (any, error) {
	if err := requireAdmin(r); err != nil {
		return nil, err
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, apperr.BadRequestf("limit must be a positive integer, got %q", raw)
		}
		limit = n
	}
	return c.svc.List(r.Context(), limit)
}

func (c *Controller) get(_ http.ResponseWriter, r *http.Request) (any, error) {
	id := chi.URLParam(r, "id")
	if err := requireSelfOrAdmin(r, id); err != nil {
		return nil, err
	}
	return c.svc.Get(r.Context(), id)
}

func (c *Controller) update(w http.ResponseWriter, r *http.Request) (any, error) {
	id := chi.URLParam(r, "id")
	if err := requireSelfOrAdmin(r, id); err != nil {
		return nil, err
	}
	var req UpdateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return nil, err
	}
	if req.Roles != nil && !reqctx.UserFrom(r.Context()).IsAdmin() {
		return nil, apperr.Forbidden("only admins can change roles")
	}
	return c.svc.Update(r.Context(), id, req)
}

func (c *Controller) delete(_ http.ResponseWriter, r *http.Request) (any, error) {
	if err := requireAdmin(r); err != nil {
		return nil, err
	}
	if err := c.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		return nil, err
	}
	return wrap.NoContent, nil
}

func requireAdmin(r *http.Request) error {
	id := reqctx.UserFrom(r.Context())
	if id.IsAnonymous() {
		return apperr.Unauthorized("authentication required")
	}
	if !id.IsAdmin() {
		return apperr.Forbidden("admin role required")
	}
	return nil
}

func requireSelfOrAdmin(r *http.Request, userID string) error {
	id := reqctx.UserFrom(r.Context())
	if id.IsAnonymous() {
		return apperr.Unauthorized("authentication required")
	}
	if id.ID != userID && !id.IsAdmin() {
		return apperr.Forbidden("not allowed to access this user")
	}
	return nil
}

// decodeJSON reads one JSON object from the body. Syntax, type, and empty
// body errors are returned as is for the wrapper to translate.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	err := dec.Decode(v)
	if err == nil {
		return nil
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return apperr.BadRequestf("request body exceeds %d bytes", maxErr.Limit)
	}
	if field, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
		return apperr.Validation("unknown field", apperr.FieldError{
			Field:   strings.Trim(field, `"`),
			Message: "field is not accepted",
			Code:    "unknown",
		}).WithCause(err)
	}
	return err
}
