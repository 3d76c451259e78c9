package auth

import (
	"context"
	"slices"
	"strings"

	"roombook/pkg/sanitizer"
)

type Role string

const (
	RoleEmployee   Role = "employee"
	RoleManager    Role = "manager"
	RoleLeadership Role = "leadership"
	RoleAdmin      Role = "admin"
)

// Caller is the authenticated identity a request acts on behalf of.
type Caller struct {
	ID    string
	Roles []Role
}

func NewCaller(id string, roles ...string) Caller {
	c := Caller{ID: strings.TrimSpace(id)}
	for _, r := range sanitizer.SanitizeSlice(roles, sanitizer.NormalizeLabel) {
		c.Roles = append(c.Roles, Role(r))
	}
	return c
}

func (c Caller) HasRole(role Role) bool {
	return slices.Contains(c.Roles, role)
}

func (c Caller) HasAnyRole(roles ...Role) bool {
	for _, r := range roles {
		if c.HasRole(r) {
			return true
		}
	}
	return false
}

func (c Caller) IsAnonymous() bool {
	return c.ID == ""
}

type callerKey struct{}

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

func FromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok && !c.IsAnonymous()
}
