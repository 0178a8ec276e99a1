// ABOUTME: RegisterAll wires every built-in pack and observer into a registry
// ABOUTME: Dependencies are passed explicitly; optional ones may be nil

package operations

import (
	"log/slog"

	"github.com/2389/sml-gateway/internal/config"
	"github.com/2389/sml-gateway/internal/metrics"
	"github.com/2389/sml-gateway/internal/sml"
	"github.com/2389/sml-gateway/internal/store"
	"github.com/2389/sml-gateway/internal/users"
)

// Deps are the collaborators of the built-in operations.
type Deps struct {
	Config    *config.Config
	Store     store.Store
	Users     *users.Service
	Publisher users.Publisher   // optional
	Metrics   *metrics.Collector // optional
	Version   string
	Logger    *slog.Logger
}

// Packs returns every built-in pack for deps.
func Packs(reg *sml.Registry, deps Deps) []*Pack {
	notes := NewNotifier(deps.Store, deps.Publisher, deps.Logger)
	return []*Pack{
		SystemPack(reg, deps.Store, deps.Version),
		ConfigPack(deps.Config),
		UsersPack(deps.Users, notes),
		AuditPack(deps.Store),
		NotificationsPack(notes),
	}
}

// RegisterAll installs every built-in pack and attaches the observers. The
// caller locks the registry afterwards.
func RegisterAll(reg *sml.Registry, deps Deps) error {
	for _, p := range Packs(reg, deps) {
		if err := Install(reg, p); err != nil {
			return err
		}
	}
	reg.OnExecute(AuditObserver(deps.Store, deps.Logger))
	if deps.Metrics != nil {
		reg.OnExecute(MetricsObserver(deps.Metrics))
	}
	return nil
}
