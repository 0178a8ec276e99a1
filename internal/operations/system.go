// ABOUTME: System pack: liveness, clock, and the boot event
// ABOUTME: system.health reports store reachability without failing the call

package operations

import (
	"context"
	"time"
	_ "time/tzdata" // zone data for system.time in minimal images

	"github.com/2389/sml-gateway/internal/sml"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// EventBoot is published once the server is listening.
const EventBoot = "system.boot"

// SystemPack creates the system pack. db may be nil.
func SystemPack(reg *sml.Registry, db Pinger, version string) *Pack {
	return &Pack{
		Owner: "system",
		Operations: []OperationDef{
			{
				Path:       "system.health",
				Visibility: sml.VisibilityPublic,
				Schema: sml.Schema{
					Description: "Report gateway liveness and dependency status",
					Returns:     "HealthReport",
				},
				Handler: func(ctx context.Context, _ sml.Params, _ *sml.ExecContext) (any, error) {
					status, database := "ok", "ok"
					if db == nil {
						database = "unconfigured"
					} else if err := db.Ping(ctx); err != nil {
						status, database = "degraded", err.Error()
					}
					return map[string]any{
						"status":   status,
						"version":  version,
						"database": database,
						"locked":   reg.Locked(),
					}, nil
				},
			},
			{
				Path:       "system.time",
				Visibility: sml.VisibilityPublic,
				Schema: sml.Schema{
					Description: "Current server time",
					Params: map[string]sml.ParamSpec{
						"timezone": {Type: sml.TypeString, Description: "IANA zone name; defaults to UTC"},
					},
					Returns: "ServerTime",
				},
				Handler: func(_ context.Context, p sml.Params, _ *sml.ExecContext) (any, error) {
					loc := time.UTC
					if tz := p.String("timezone"); tz != "" {
						l, err := time.LoadLocation(tz)
						if err != nil {
							return nil, badParam("timezone", "unknown time zone %q", tz)
						}
						loc = l
					}
					now := time.Now().In(loc)
					return map[string]any{
						"time":     now.Format(time.RFC3339Nano),
						"unix":     now.Unix(),
						"timezone": loc.String(),
					}, nil
				},
			},
		},
		Events: []EventDef{
			{
				Path: EventBoot,
				Schema: sml.EventSchema{
					Description: "Gateway finished starting",
					Type:        sml.EventSystem,
					Payload: map[string]sml.ParamSpec{
						"version":    {Type: sml.TypeString, Required: true},
						"operations": {Type: sml.TypeNumber},
					},
				},
			},
		},
	}
}
