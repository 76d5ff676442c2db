// Package identity derives who is calling, and from where, out of the
// headers set by the authenticating proxy in front of the portal.
package identity

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ErrInvalidAssertion is returned when a signed identity assertion is present but cannot be verified
var ErrInvalidAssertion = errors.New("identity: invalid identity assertion")

// Caller is the identity attached to a request. The zero value is an anonymous caller.
type Caller struct {
	Email     string
	Name      string
	Groups    []string
	UserID    string
	IsAdmin   bool
	UserAgent string
	Location  Location
}

// Authenticated reports whether the proxy supplied an identity
func (c Caller) Authenticated() bool {
	return c.Email != ""
}

// HeaderNames lists the proxy headers identity is read from
type HeaderNames struct {
	Email         string `mapstructure:"email"`
	FallbackEmail string `mapstructure:"fallback_email"`
	Name          string `mapstructure:"name"`
	Groups        string `mapstructure:"groups"`
	UserID        string `mapstructure:"user_id"`
	Assertion     string `mapstructure:"assertion"`
}

// DefaultHeaderNames are the headers set by Cloudflare Access, with the
// generic x-authenticated-* fallbacks used by other proxies.
// Groups is left empty: Cloudflare Access neither sets nor strips a group
// header, so one is only read when the operator names it.
func DefaultHeaderNames() HeaderNames {
	return HeaderNames{
		Email:         "Cf-Access-Authenticated-User-Email",
		FallbackEmail: "X-Authenticated-User-Email",
		Name:          "X-Authenticated-User-Name",
		UserID:        "X-Authenticated-User-Id",
		Assertion:     "Cf-Access-Jwt-Assertion",
	}
}

// Verifier resolves the caller for a request. A request without identity
// yields an anonymous Caller and a nil error.
type Verifier interface {
	Verify(r *http.Request) (Caller, error)
}

// splitGroups parses a comma separated group header
func splitGroups(raw string) []string {
	if raw == "" {
		return nil
	}
	var groups []string
	for _, g := range strings.Split(raw, ",") {
		if g = strings.TrimSpace(g); g != "" {
			groups = append(groups, g)
		}
	}
	return groups
}

type callerKey struct{}

// WithCaller stores the caller in ctx
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// FromContext returns the caller stored in ctx, or an anonymous caller
func FromContext(ctx context.Context) Caller {
	c, _ := ctx.Value(callerKey{}).(Caller)
	return c
}
