// ABOUTME: Users pack mapping data.models.User operations onto the users service
// ABOUTME: Also declares the User events and the hidden welcome action

package operations

import (
	"context"

	"github.com/2389/sml-gateway/internal/sml"
	"github.com/2389/sml-gateway/internal/store"
	"github.com/2389/sml-gateway/internal/users"
)

// UsersPack creates the users pack backed by svc. notes records the
// welcome notification; it may be nil when the action is not needed.
func UsersPack(svc *users.Service, notes *Notifier) *Pack {
	h := &userHandlers{svc: svc, notes: notes}

	idParam := map[string]sml.ParamSpec{
		"id": {Type: sml.TypeString, Required: true, Description: "User id"},
	}
	rolesSpec := sml.ParamSpec{Type: sml.TypeArray, Description: "Any of member, admin, owner"}

	p := &Pack{
		Owner: "users",
		Operations: []OperationDef{
			{
				Path:       "data.models.User.create",
				Visibility: sml.VisibilityAdmin,
				Schema: sml.Schema{
					Description: "Create a user account",
					Params: map[string]sml.ParamSpec{
						"email":    {Type: sml.TypeString, Required: true},
						"name":     {Type: sml.TypeString, Required: true},
						"password": {Type: sml.TypeString, Required: true},
						"roles":    rolesSpec,
					},
					Returns: "User",
				},
				Handler: h.create,
			},
			{
				Path:       "data.models.User.findOne",
				Visibility: sml.VisibilityInternal,
				Schema: sml.Schema{
					Description: "Find a user by id or email",
					Params: map[string]sml.ParamSpec{
						"id":    {Type: sml.TypeString},
						"email": {Type: sml.TypeString},
					},
					Returns: "User",
				},
				Handler: h.findOne,
			},
			{
				Path:       "data.models.User.findMany",
				Visibility: sml.VisibilityInternal,
				Schema: sml.Schema{
					Description: "List users, oldest first",
					Params: map[string]sml.ParamSpec{
						"limit": {Type: sml.TypeNumber, Description: "Maximum number of users"},
					},
					Returns: "User[]",
				},
				Handler: h.findMany,
			},
			{
				Path:       "data.models.User.update",
				Visibility: sml.VisibilityAdmin,
				Schema: sml.Schema{
					Description: "Update a user account",
					Params: map[string]sml.ParamSpec{
						"id":       {Type: sml.TypeString, Required: true},
						"name":     {Type: sml.TypeString},
						"password": {Type: sml.TypeString},
						"roles":    rolesSpec,
					},
					Returns: "User",
				},
				Handler: h.update,
			},
			{
				Path:       "data.models.User.delete",
				Visibility: sml.VisibilityAdmin,
				Schema: sml.Schema{
					Description: "Delete a user account and its notifications",
					Params:      idParam,
					Returns:     "void",
				},
				Handler: h.delete,
			},
		},
		Events: []EventDef{
			{
				Path: users.EventCreated,
				Schema: sml.EventSchema{
					Description: "A user account was created",
					Type:        sml.EventDomain,
					Payload: map[string]sml.ParamSpec{
						"id":    {Type: sml.TypeString, Required: true},
						"email": {Type: sml.TypeString, Required: true},
						"name":  {Type: sml.TypeString},
					},
				},
			},
			{
				Path: users.EventUpdated,
				Schema: sml.EventSchema{
					Description: "A user account was updated",
					Type:        sml.EventDomain,
					Payload: map[string]sml.ParamSpec{
						"id":     {Type: sml.TypeString, Required: true},
						"fields": {Type: sml.TypeArray},
					},
				},
			},
			{
				Path: users.EventDeleted,
				Schema: sml.EventSchema{
					Description: "A user account was deleted",
					Type:        sml.EventDomain,
					Payload: map[string]sml.ParamSpec{
						"id": {Type: sml.TypeString, Required: true},
					},
				},
			},
		},
	}

	if notes != nil {
		p.Operations = append(p.Operations, OperationDef{
			Path:       "actions.users.welcome",
			Visibility: sml.VisibilityHidden,
			Schema: sml.Schema{
				Description: "Send the welcome notification to a new user",
				Params: map[string]sml.ParamSpec{
					"userId": {Type: sml.TypeString, Required: true},
				},
				Returns: "Notification",
			},
			Handler: h.welcome,
		})
	}
	return p
}

type userHandlers struct {
	svc   *users.Service
	notes *Notifier
}

func (h *userHandlers) create(ctx context.Context, p sml.Params, ec *sml.ExecContext) (any, error) {
	roles, err := stringSlice(p["roles"])
	if err != nil {
		return nil, badParam("roles", "%v", err)
	}
	return h.svc.Create(traced(ctx, ec), users.CreateUserRequest{
		Email:    p.String("email"),
		Name:     p.String("name"),
		Password: p.String("password"),
		Roles:    roles,
	})
}

func (h *userHandlers) findOne(ctx context.Context, p sml.Params, _ *sml.ExecContext) (any, error) {
	switch {
	case p.String("id") != "":
		return h.svc.Get(ctx, p.String("id"))
	case p.String("email") != "":
		return h.svc.GetByEmail(ctx, p.String("email"))
	default:
		return nil, badParam("id", "one of id or email is required")
	}
}

func (h *userHandlers) findMany(ctx context.Context, p sml.Params, _ *sml.ExecContext) (any, error) {
	return h.svc.List(ctx, p.Int("limit", 0))
}

func (h *userHandlers) update(ctx context.Context, p sml.Params, ec *sml.ExecContext) (any, error) {
	roles, err := stringSlice(p["roles"])
	if err != nil {
		return nil, badParam("roles", "%v", err)
	}
	return h.svc.Update(traced(ctx, ec), p.String("id"), users.UpdateUserRequest{
		Name:     optionalString(p, "name"),
		Password: optionalString(p, "password"),
		Roles:    roles,
	})
}

func (h *userHandlers) delete(ctx context.Context, p sml.Params, ec *sml.ExecContext) (any, error) {
	if err := h.svc.Delete(traced(ctx, ec), p.String("id")); err != nil {
		return nil, err
	}
	return map[string]any{"deleted": p.String("id")}, nil
}

func (h *userHandlers) welcome(ctx context.Context, p sml.Params, ec *sml.ExecContext) (any, error) {
	u, err := h.svc.Get(ctx, p.String("userId"))
	if err != nil {
		return nil, err
	}
	return h.notes.Send(traced(ctx, ec), &store.Notification{
		UserID:  u.ID,
		Kind:    "welcome",
		Message: "Welcome, " + u.Name + "!",
	})
}
