// ABOUTME: Config pack exposing non-secret configuration values to admins
// ABOUTME: The key enum is the whole readable surface; secrets are never listed

package operations

import (
	"context"
	"slices"
	"sort"

	"github.com/2389/sml-gateway/internal/config"
	"github.com/2389/sml-gateway/internal/sml"
)

// readableConfig returns the values config.get may expose, by key.
func readableConfig(cfg *config.Config) map[string]any {
	return map[string]any{
		"server.http_addr":        cfg.Server.HTTPAddr,
		"server.grpc_addr":        cfg.Server.GRPCAddr,
		"server.environment":      cfg.Server.Environment,
		"server.shutdown_timeout": cfg.Server.ShutdownTimeout.String(),
		"database.path":           cfg.Database.Path,
		"auth.token_ttl":          cfg.Auth.TokenTTL.String(),
		"logging.level":           cfg.Logging.Level,
		"logging.format":          cfg.Logging.Format,
		"metrics.enabled":         cfg.Metrics.Enabled,
		"metrics.path":            cfg.Metrics.Path,
		"workflows.count":         len(cfg.Workflows),
	}
}

// ConfigPack creates the config pack for cfg.
func ConfigPack(cfg *config.Config) *Pack {
	values := readableConfig(cfg)
	keys := make([]any, 0, len(values))
	names := make([]string, 0, len(values))
	for k := range values {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		keys = append(keys, k)
	}

	return &Pack{
		Owner: "config",
		Operations: []OperationDef{
			{
				Path:       "config.get",
				Visibility: sml.VisibilityAdmin,
				Schema: sml.Schema{
					Description: "Read a configuration value, or all readable values when key is omitted",
					Params: map[string]sml.ParamSpec{
						"key": {Type: sml.TypeString, Enum: keys, Description: "Dotted config key"},
					},
					Returns: "any",
				},
				Handler: func(_ context.Context, p sml.Params, _ *sml.ExecContext) (any, error) {
					key := p.String("key")
					if key == "" {
						return values, nil
					}
					if !slices.Contains(names, key) {
						return nil, badParam("key", "unknown config key %q", key)
					}
					return map[string]any{"key": key, "value": values[key]}, nil
				},
			},
		},
	}
}
