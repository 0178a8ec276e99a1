// ABOUTME: Package users is the account service and its HTTP controller
// ABOUTME: Both are decorated by internal/wrap and publish data.models.User events

// Package users implements account management on top of the store.
//
// Service methods validate their input with go-playground/validator, run
// through a wrap.Wrapper, and publish data.models.User.created, updated and
// deleted events after successful writes. Controller exposes the service
// over HTTP and performs the admin checks for mutations. Service also
// implements reqctx.IdentityLookup so bearer tokens for deleted users stop
// working immediately.
package users
