// Package auth provides identities and bearer credentials for sml-gateway.
//
// # Identities
//
// Every request runs as an Identity. Authenticated users carry their ID,
// email, roles, and ability rules; everyone else is the anonymous identity:
//
//	id := auth.Anonymous() // ID "", Roles ["anonymous"]
//	id.IsAnonymous()       // true
//
// Roles "admin" and "owner" are administrative. Ability rules are
// action/subject pairs where "manage" and "all" act as wildcards:
//
//	id.Can("read", "User")
//
// # Tokens
//
// Bearer tokens are HS256 JWTs signed with the configured jwt_secret, which
// must be at least 32 bytes:
//
//	v, err := auth.NewJWTVerifier(secret)
//	token, err := v.Generate(identity, 24*time.Hour)
//	identity, err := v.Verify(token)
//
// Tokens carry the standard sub/iat/exp claims plus email, name, roles and
// rules.
//
// # Passwords
//
// HashPassword and CheckPassword wrap bcrypt for the login flow.
package auth
