// ABOUTME: Package events is the in-process bus for events declared in the registry
// ABOUTME: Publishing validates payloads; subscribers match paths with wildcards

// Package events delivers declared registry events to in-process
// subscribers.
//
// Only paths declared with sml.Registry.DeclareEvent can be published, and
// the payload is validated against the declared shape using the same rules
// as operation params. Subscribers register a dot-separated pattern:
//
//	data.models.User.created   exact path
//	data.models.*.created      '*' matches one segment
//	data.**                    trailing '**' matches one or more segments
//
// Delivery is non-blocking. A subscriber whose buffer is full misses the
// event; the drop is logged and counted.
package events
