// Package sml implements the system management layer: a write-once
// registry of named operations and declared events.
//
// # Paths
//
// Operations and events are addressed by dot-separated paths such as
// "data.models.User.create" or "config.get". Operations and events live in
// separate namespaces, so the same path may name one of each.
//
// # Lifecycle
//
// Registrations happen at boot. Lock is a one-way, idempotent transition
// after which Register and DeclareEvent always fail with SML_REGISTRY_LOCKED.
// Execution is allowed before and after locking.
//
//	reg := sml.NewRegistry(logger)
//	err := reg.Register("math.add", sml.Operation{
//	    Handler: add,
//	    Schema: sml.Schema{
//	        Description: "Adds two numbers",
//	        Params: map[string]sml.ParamSpec{
//	            "a": {Type: sml.TypeNumber, Required: true},
//	            "b": {Type: sml.TypeNumber, Required: true},
//	        },
//	    },
//	}, sml.Options{Owner: "math"})
//	reg.Lock()
//	result, err := reg.Execute(ctx, "math.add", sml.Params{"a": 2, "b": 3}, ec)
//
// # Visibility
//
//   - public: anyone
//   - internal: an authenticated user or a workflow context
//   - admin: the admin or owner role
//   - hidden: in-process system calls only (ExecContext.System)
//
// # Validation
//
// Parameters are checked against the schema before the handler runs. Every
// violation is collected, sorted by parameter name, and returned in one
// SML_VALIDATION_FAILED error.
//
// # Errors
//
// All registry failures are *Error values with an SML_* code. They implement
// apperr.Provider so HTTP and gRPC boundaries can map them onto the
// application taxonomy.
package sml
