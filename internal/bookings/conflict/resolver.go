// Package conflict decides whether a requested booking fits next to the
// bookings already held for the same room and date.
package conflict

import (
	"roombook/pkg/model"
)

// Interval is a half-open range [Start, End) in minutes since midnight.
type Interval struct {
	Start int
	End   int
}

func (i Interval) Valid() bool {
	return i.Start >= 0 && i.Start < i.End
}

// Overlaps uses half-open semantics: back-to-back intervals do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start < o.End && i.End > o.Start
}

func IntervalOf(b *model.Booking) (Interval, error) {
	start, end, err := b.Minutes()
	if err != nil {
		return Interval{}, err
	}
	return Interval{Start: start, End: end}, nil
}

// FindConflicts returns the active bookings for roomID on date that overlap
// iv. excludeID lets a booking be checked against its own room/date without
// matching itself. Rows with unparseable times are skipped.
func FindConflicts(existing []*model.Booking, roomID, date string, iv Interval, excludeID string) []*model.Booking {
	var conflicts []*model.Booking
	for _, b := range existing {
		if b == nil || !b.IsActive() {
			continue
		}
		if b.RoomID != roomID || b.Date != date {
			continue
		}
		if excludeID != "" && b.ID == excludeID {
			continue
		}
		other, err := IntervalOf(b)
		if err != nil {
			continue
		}
		if iv.Overlaps(other) {
			conflicts = append(conflicts, b)
		}
	}
	return conflicts
}

type Outcome int

const (
	Accept Outcome = iota
	Reject
)

func (o Outcome) String() string {
	if o == Accept {
		return "accept"
	}
	return "reject"
}

type Decision struct {
	Outcome   Outcome
	Conflicts []*model.Booking
	// Overridden lists the conflicts an accepted higher-priority booking
	// displaces. They stay scheduled.
	Overridden []*model.Booking
	// Blocking lists the conflicts whose priority is at least the request's.
	Blocking []*model.Booking
}

func (d Decision) Accepted() bool {
	return d.Outcome == Accept
}

// Resolve rejects when any conflict has priority greater than or equal to
// the requested one. Equal priority never overrides.
func Resolve(requested model.Priority, conflicts []*model.Booking) Decision {
	d := Decision{Outcome: Accept, Conflicts: conflicts}
	rank := requested.Rank()
	for _, c := range conflicts {
		if c.Priority.Rank() >= rank {
			d.Blocking = append(d.Blocking, c)
		}
	}
	if len(d.Blocking) > 0 {
		d.Outcome = Reject
		return d
	}
	d.Overridden = conflicts
	return d
}

func IDs(bookings []*model.Booking) []string {
	ids := make([]string, 0, len(bookings))
	for _, b := range bookings {
		ids = append(ids, b.ID)
	}
	return ids
}
