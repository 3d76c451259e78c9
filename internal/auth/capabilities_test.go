package auth

import (
	"context"
	"testing"

	"roombook/pkg/model"
)

func TestCanBook(t *testing.T) {
	employee := NewCaller("u1", "employee")
	manager := NewCaller("u2", "Manager")
	leader := NewCaller("u3", "leadership")
	admin := NewCaller("u4", "admin")

	tests := []struct {
		name     string
		caller   Caller
		priority model.Priority
		want     bool
	}{
		{"employee normal", employee, model.PriorityNormal, true},
		{"employee high", employee, model.PriorityHigh, false},
		{"employee leadership", employee, model.PriorityLeadership, false},
		{"manager high", manager, model.PriorityHigh, true},
		{"manager leadership", manager, model.PriorityLeadership, false},
		{"leadership leadership", leader, model.PriorityLeadership, true},
		{"leadership high", leader, model.PriorityHigh, true},
		{"admin high", admin, model.PriorityHigh, true},
		{"admin leadership", admin, model.PriorityLeadership, true},
		{"anonymous normal", Caller{}, model.PriorityNormal, false},
		{"unknown priority", admin, model.Priority("urgent"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanBook(tt.caller, tt.priority); got != tt.want {
				t.Errorf("CanBook() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanManageBooking(t *testing.T) {
	booking := &model.Booking{ID: "b1", BookedBy: "owner"}

	if !CanManageBooking(NewCaller("owner"), booking) {
		t.Errorf("owner should manage own booking")
	}
	if CanManageBooking(NewCaller("other", "manager"), booking) {
		t.Errorf("manager should not manage someone else's booking")
	}
	if !CanManageBooking(NewCaller("root", "admin"), booking) {
		t.Errorf("admin should manage any booking")
	}
	if CanManageBooking(NewCaller("owner"), nil) {
		t.Errorf("nil booking must not be manageable")
	}
}

func TestCanViewUser(t *testing.T) {
	if !CanViewUser(NewCaller("u1"), "u1") {
		t.Errorf("caller should view own bookings")
	}
	if CanViewUser(NewCaller("u1"), "u2") {
		t.Errorf("caller should not view other users")
	}
	if !CanViewUser(NewCaller("u9", "admin"), "u2") {
		t.Errorf("admin should view other users")
	}
}

func TestCallerContext(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Fatalf("empty context should carry no caller")
	}

	ctx := WithCaller(context.Background(), NewCaller(" u1 ", " ADMIN ", ""))
	c, ok := FromContext(ctx)
	if !ok {
		t.Fatalf("expected caller in context")
	}
	if c.ID != "u1" {
		t.Errorf("expected trimmed id u1, got %q", c.ID)
	}
	if len(c.Roles) != 1 || !c.HasRole(RoleAdmin) {
		t.Errorf("expected roles [admin], got %v", c.Roles)
	}

	if _, ok := FromContext(WithCaller(context.Background(), Caller{})); ok {
		t.Errorf("anonymous caller should not count as authenticated")
	}
}
