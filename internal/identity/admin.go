package identity

import (
	"strings"

	"github.com/lk2023060901/file-portal-backend/internal/pkg/validator"
)

// AdminPolicy decides who may issue codes and manage logs
type AdminPolicy struct {
	emails map[string]struct{}
	groups map[string]struct{}
}

// NewAdminPolicy builds a policy from configured admin emails and groups
func NewAdminPolicy(emails, groups []string) *AdminPolicy {
	p := &AdminPolicy{
		emails: make(map[string]struct{}, len(emails)),
		groups: make(map[string]struct{}, len(groups)),
	}
	for _, e := range emails {
		if e = validator.NormalizeEmail(e); e != "" {
			p.emails[e] = struct{}{}
		}
	}
	for _, g := range groups {
		if g = strings.ToLower(strings.TrimSpace(g)); g != "" {
			p.groups[g] = struct{}{}
		}
	}
	return p
}

// IsAdmin reports whether c is an administrator. Anonymous callers never are.
func (p *AdminPolicy) IsAdmin(c Caller) bool {
	if p == nil || !c.Authenticated() {
		return false
	}
	if _, ok := p.emails[validator.NormalizeEmail(c.Email)]; ok {
		return true
	}
	for _, g := range c.Groups {
		if _, ok := p.groups[strings.ToLower(g)]; ok {
			return true
		}
	}
	return false
}
