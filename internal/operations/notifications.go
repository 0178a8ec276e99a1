// ABOUTME: Notifications pack and the Notifier that stores and announces notifications
// ABOUTME: Non-admin callers can only list their own notifications

package operations

import (
	"context"
	"log/slog"
	"time"

	"github.com/2389/sml-gateway/internal/apperr"
	"github.com/2389/sml-gateway/internal/sml"
	"github.com/2389/sml-gateway/internal/store"
	"github.com/2389/sml-gateway/internal/users"
)

// EventNotificationSent is published after a notification is stored.
const EventNotificationSent = "notifications.sent"

// Notification is the public view of a stored notification.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

func toNotification(n *store.Notification) *Notification {
	return &Notification{ID: n.ID, UserID: n.UserID, Kind: n.Kind, Message: n.Message, CreatedAt: n.CreatedAt}
}

// Notifier stores notifications and publishes notifications.sent.
type Notifier struct {
	store     store.NotificationStore
	publisher users.Publisher
	logger    *slog.Logger
}

// NewNotifier creates a Notifier. publisher may be nil.
func NewNotifier(st store.NotificationStore, publisher users.Publisher, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{store: st, publisher: publisher, logger: logger.With("component", "notifications")}
}

// Send stores n and announces it.
func (n *Notifier) Send(ctx context.Context, note *store.Notification) (*Notification, error) {
	if err := n.store.CreateNotification(ctx, note); err != nil {
		return nil, err
	}
	if n.publisher != nil {
		payload := map[string]any{"id": note.ID, "userId": note.UserID, "kind": note.Kind}
		if _, err := n.publisher.Publish(ctx, EventNotificationSent, payload); err != nil {
			n.logger.Warn("failed to publish event", "path", EventNotificationSent, "error", err)
		}
	}
	return toNotification(note), nil
}

// List returns a user's notifications, newest first.
func (n *Notifier) List(ctx context.Context, userID string, limit int) ([]*Notification, error) {
	list, err := n.store.ListNotifications(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*Notification, 0, len(list))
	for _, item := range list {
		out = append(out, toNotification(item))
	}
	return out, nil
}

// NotificationsPack creates the notifications pack backed by notes.
func NotificationsPack(notes *Notifier) *Pack {
	return &Pack{
		Owner: "notifications",
		Operations: []OperationDef{
			{
				Path:       "notifications.send",
				Visibility: sml.VisibilityInternal,
				Schema: sml.Schema{
					Description: "Send a notification to a user",
					Params: map[string]sml.ParamSpec{
						"userId":  {Type: sml.TypeString, Required: true},
						"kind":    {Type: sml.TypeString, Required: true, Enum: []any{"info", "warning", "welcome"}},
						"message": {Type: sml.TypeString, Required: true},
					},
					Returns: "Notification",
				},
				Handler: func(ctx context.Context, p sml.Params, ec *sml.ExecContext) (any, error) {
					if p.String("message") == "" {
						return nil, badParam("message", "message must not be empty")
					}
					return notes.Send(traced(ctx, ec), &store.Notification{
						UserID:  p.String("userId"),
						Kind:    p.String("kind"),
						Message: p.String("message"),
					})
				},
			},
			{
				Path:       "notifications.list",
				Visibility: sml.VisibilityInternal,
				Schema: sml.Schema{
					Description: "List notifications for a user; defaults to the caller",
					Params: map[string]sml.ParamSpec{
						"userId": {Type: sml.TypeString},
						"limit":  {Type: sml.TypeNumber},
					},
					Returns: "Notification[]",
				},
				Handler: func(ctx context.Context, p sml.Params, ec *sml.ExecContext) (any, error) {
					userID := p.String("userId")
					if userID == "" {
						userID = ec.ActorID()
					}
					if userID == "" {
						return nil, badParam("userId", "userId is required without an authenticated caller")
					}
					if userID != ec.ActorID() && !ec.System && !ec.User.IsAdmin() {
						return nil, apperr.Forbidden("cannot list another user's notifications")
					}
					return notes.List(ctx, userID, p.Int("limit", 0))
				},
			},
		},
		Events: []EventDef{
			{
				Path: EventNotificationSent,
				Schema: sml.EventSchema{
					Description: "A notification was delivered",
					Type:        sml.EventDomain,
					Payload: map[string]sml.ParamSpec{
						"id":     {Type: sml.TypeString, Required: true},
						"userId": {Type: sml.TypeString, Required: true},
						"kind":   {Type: sml.TypeString},
					},
				},
			},
		},
	}
}
