package model

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// ErrUnknownValue is returned when a tagged value (priority, status, action)
// is decoded from a string that is not one of its known members.
var ErrUnknownValue = errors.New("unknown value")

type Priority string

const (
	PriorityNormal     Priority = "normal"
	PriorityHigh       Priority = "high"
	PriorityLeadership Priority = "leadership"
)

var priorityRanks = map[Priority]int{
	PriorityNormal:     0,
	PriorityHigh:       1,
	PriorityLeadership: 2,
}

func ParsePriority(s string) (Priority, error) {
	p := Priority(s)
	if _, ok := priorityRanks[p]; !ok {
		return "", fmt.Errorf("%w: priority %q", ErrUnknownValue, s)
	}
	return p, nil
}

// Rank orders priorities for override decisions: normal < high < leadership.
// Unknown values rank below normal so they can never override anything.
func (p Priority) Rank() int {
	if r, ok := priorityRanks[p]; ok {
		return r
	}
	return -1
}

// UnmarshalJSON accepts an empty string so request defaults can be applied later.
func (p *Priority) UnmarshalJSON(data []byte) error {
	return unmarshalJSONEnum(data, func(s string) error {
		if s == "" {
			*p = ""
			return nil
		}
		parsed, err := ParsePriority(s)
		if err != nil {
			return err
		}
		*p = parsed
		return nil
	})
}

func (p *Priority) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	return unmarshalBSONEnum("priority", t, data, func(s string) error {
		parsed, err := ParsePriority(s)
		if err != nil {
			return err
		}
		*p = parsed
		return nil
	})
}

type BookingStatus string

const (
	BookingStatusScheduled BookingStatus = "scheduled"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

func ParseBookingStatus(s string) (BookingStatus, error) {
	switch st := BookingStatus(s); st {
	case BookingStatusScheduled, BookingStatusCancelled, BookingStatusCompleted:
		return st, nil
	}
	return "", fmt.Errorf("%w: booking status %q", ErrUnknownValue, s)
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
// Only scheduled bookings move, and only into a terminal state.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	if s != BookingStatusScheduled {
		return false
	}
	return next == BookingStatusCancelled || next == BookingStatusCompleted
}

func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCancelled || s == BookingStatusCompleted
}

func (s *BookingStatus) UnmarshalJSON(data []byte) error {
	return unmarshalJSONEnum(data, func(v string) error {
		parsed, err := ParseBookingStatus(v)
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	})
}

func (s *BookingStatus) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	return unmarshalBSONEnum("booking status", t, data, func(v string) error {
		parsed, err := ParseBookingStatus(v)
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	})
}

type RoomStatus string

const (
	RoomStatusActive      RoomStatus = "active"
	RoomStatusMaintenance RoomStatus = "maintenance"
)

func ParseRoomStatus(s string) (RoomStatus, error) {
	switch st := RoomStatus(s); st {
	case RoomStatusActive, RoomStatusMaintenance:
		return st, nil
	}
	return "", fmt.Errorf("%w: room status %q", ErrUnknownValue, s)
}

func (s *RoomStatus) UnmarshalJSON(data []byte) error {
	return unmarshalJSONEnum(data, func(v string) error {
		parsed, err := ParseRoomStatus(v)
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	})
}

func (s *RoomStatus) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	return unmarshalBSONEnum("room status", t, data, func(v string) error {
		parsed, err := ParseRoomStatus(v)
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	})
}

type AuditAction string

const (
	AuditActionCreated         AuditAction = "created"
	AuditActionCancelled       AuditAction = "cancelled"
	AuditActionUpdated         AuditAction = "updated"
	AuditActionPriorityChanged AuditAction = "priority_changed"
)

func ParseAuditAction(s string) (AuditAction, error) {
	switch a := AuditAction(s); a {
	case AuditActionCreated, AuditActionCancelled, AuditActionUpdated, AuditActionPriorityChanged:
		return a, nil
	}
	return "", fmt.Errorf("%w: audit action %q", ErrUnknownValue, s)
}

func (a *AuditAction) UnmarshalJSON(data []byte) error {
	return unmarshalJSONEnum(data, func(v string) error {
		parsed, err := ParseAuditAction(v)
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	})
}

func (a *AuditAction) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	return unmarshalBSONEnum("audit action", t, data, func(v string) error {
		parsed, err := ParseAuditAction(v)
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	})
}

func unmarshalJSONEnum(data []byte, set func(string) error) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return set(s)
}

func unmarshalBSONEnum(name string, t bsontype.Type, data []byte, set func(string) error) error {
	s, ok := bson.RawValue{Type: t, Value: data}.StringValueOK()
	if !ok {
		return fmt.Errorf("%s: expected string, got %s", name, t)
	}
	return set(s)
}
