// ABOUTME: Identity of the caller attached to every request and execution
// ABOUTME: Anonymous has an empty ID; admin and owner roles are administrative

package auth

import "slices"

// Role names with built-in meaning.
const (
	RoleAnonymous = "anonymous"
	RoleAdmin     = "admin"
	RoleOwner     = "owner"
)

// Ability wildcards.
const (
	ActionManage = "manage"
	SubjectAll   = "all"
)

// Rule grants Action on Subject.
type Rule struct {
	Action  string `json:"action"`
	Subject string `json:"subject"`
}

// Identity describes who is making a request.
type Identity struct {
	ID    string   `json:"id"` // empty for anonymous callers
	Email string   `json:"email,omitempty"`
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles"`
	Rules []Rule   `json:"rules,omitempty"`
}

// Anonymous returns a fresh anonymous identity.
func Anonymous() *Identity {
	return &Identity{Roles: []string{RoleAnonymous}}
}

// IsAnonymous reports whether the identity has no user id.
func (i *Identity) IsAnonymous() bool {
	return i == nil || i.ID == ""
}

// HasRole reports whether the identity holds role.
func (i *Identity) HasRole(role string) bool {
	if i == nil {
		return false
	}
	return slices.Contains(i.Roles, role)
}

// IsAdmin returns true if the identity has admin or owner role.
func (i *Identity) IsAdmin() bool {
	if i.IsAnonymous() {
		return false
	}
	return i.HasRole(RoleAdmin) || i.HasRole(RoleOwner)
}

// Can reports whether any rule grants action on subject. Admins can do anything.
func (i *Identity) Can(action, subject string) bool {
	if i == nil {
		return false
	}
	if i.IsAdmin() {
		return true
	}
	for _, r := range i.Rules {
		if (r.Action == action || r.Action == ActionManage) &&
			(r.Subject == subject || r.Subject == SubjectAll) {
			return true
		}
	}
	return false
}
