package auth

import (
	"net/http"
	"strings"
)

// Role represents the resolved caller role for a request.
type Role int

const (
	RoleUnauth Role = iota
	RoleFrontend
	RoleBackend
)

// SecConfig mirrors the security-related configuration used to drive
// authentication, CORS and rate limiting behavior. Put here so limiter.go
// and gateway.go can reference the shared type.
type SecConfig struct {
	AllowedOrigins []string
	RPS            float64
	Burst          int
	IPWhitelist    []string
	BackendKeys    map[string]struct{}
	FrontendKeys   map[string]struct{}
}

// Context is the authorization context threaded into every mutating
// thread-manager call. Ownership checks (edit/delete by sender only) key
// on ActorID; name and role ride along for message attribution.
type Context struct {
	ActorID   string
	ActorName string
	ActorRole string
}

// Valid reports whether the context identifies an actor.
func (c Context) Valid() bool { return c.ActorID != "" }

// ActorFromRequest builds the authorization context from identity headers.
// The gateway middleware has already authenticated the API key; these
// headers attribute the acting clinician.
func ActorFromRequest(r *http.Request) Context {
	return Context{
		ActorID:   strings.TrimSpace(r.Header.Get("X-User-ID")),
		ActorName: strings.TrimSpace(r.Header.Get("X-User-Name")),
		ActorRole: strings.TrimSpace(r.Header.Get("X-User-Role")),
	}
}
