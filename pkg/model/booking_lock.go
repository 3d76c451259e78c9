package model

import "time"

// BookingLock is an advisory lock document guarding one room/date while a
// booking is checked for conflicts and inserted. Owner identifies the holder
// so a late release never deletes a lock someone else re-acquired.
type BookingLock struct {
	ID        string    `bson:"_id" json:"id"`
	Owner     string    `bson:"owner" json:"owner"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
