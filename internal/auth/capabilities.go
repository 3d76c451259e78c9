package auth

import "roombook/pkg/model"

// CanBook reports whether the caller may create a booking at priority p.
// Each role may book at its own level or any level below it.
func CanBook(c Caller, p model.Priority) bool {
	if c.IsAnonymous() {
		return false
	}
	switch p {
	case model.PriorityNormal:
		return true
	case model.PriorityHigh:
		return c.HasAnyRole(RoleManager, RoleLeadership, RoleAdmin)
	case model.PriorityLeadership:
		return c.HasAnyRole(RoleLeadership, RoleAdmin)
	}
	return false
}

// CanManageBooking covers cancelling a booking and reading its audit trail.
func CanManageBooking(c Caller, b *model.Booking) bool {
	if c.IsAnonymous() || b == nil {
		return false
	}
	return b.BookedBy == c.ID || c.HasRole(RoleAdmin)
}

func CanViewUser(c Caller, userID string) bool {
	if c.IsAnonymous() {
		return false
	}
	return userID == c.ID || c.HasRole(RoleAdmin)
}
