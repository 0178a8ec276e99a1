// ABOUTME: Package operations registers the gateway's built-in operations and events
// ABOUTME: Grouped into packs installed once at boot before the registry is locked

// Package operations holds the boot-time registrations of the gateway.
//
// Operations are grouped into packs, one per owner. RegisterAll installs
// every pack and attaches the audit and metrics observers; the caller
// locks the registry afterwards.
//
//	system         system.health, system.time, event system.boot
//	config         config.get
//	users          data.models.User.*, actions.users.welcome and User events
//	audit          audit.executions.list
//	notifications  notifications.send, notifications.list, event notifications.sent
package operations
