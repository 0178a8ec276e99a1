// Package store provides persistent storage for sml-gateway using SQLite.
//
// # Architecture
//
// The package is interface driven:
//
//   - UserStore: user accounts backing the data.models.User operations
//   - ExecutionStore: the audit trail of SML operation executions
//   - NotificationStore: notifications delivered to users
//
// SQLiteStore implements all of them in a single struct on top of
// modernc.org/sqlite (pure Go, no cgo). The schema is created on open.
//
// # Errors
//
// Lookups of missing rows return ErrNotFound. Uniqueness violations are not
// converted here; the driver error is wrapped with %w so the apperr
// translation layer can recognize it and map it to DUPLICATE_ENTRY.
//
// # Usage
//
//	s, err := store.NewSQLiteStore("/var/lib/sml/gateway.db")
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
package store
