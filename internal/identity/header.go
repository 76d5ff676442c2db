package identity

import (
	"net/http"

	"github.com/lk2023060901/file-portal-backend/internal/pkg/validator"
)

// HeaderVerifier trusts identity headers as-is. Only deploy it behind a
// proxy that strips these headers from client requests.
type HeaderVerifier struct {
	headers HeaderNames
	admins  *AdminPolicy
}

// NewHeaderVerifier creates a verifier over the given header names
func NewHeaderVerifier(headers HeaderNames, admins *AdminPolicy) *HeaderVerifier {
	return &HeaderVerifier{headers: headers, admins: admins}
}

// Verify reads the caller from request headers
func (v *HeaderVerifier) Verify(r *http.Request) (Caller, error) {
	c := Caller{
		UserAgent: r.UserAgent(),
		Location:  ExtractLocation(r),
	}

	email := r.Header.Get(v.headers.Email)
	if email == "" && v.headers.FallbackEmail != "" {
		email = r.Header.Get(v.headers.FallbackEmail)
	}
	c.Email = validator.NormalizeEmail(email)
	if c.Email == "" {
		return c, nil
	}

	c.Name = r.Header.Get(v.headers.Name)
	c.UserID = r.Header.Get(v.headers.UserID)
	if v.headers.Groups != "" {
		c.Groups = splitGroups(r.Header.Get(v.headers.Groups))
	}
	c.IsAdmin = v.admins.IsAdmin(c)
	return c, nil
}
