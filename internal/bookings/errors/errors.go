package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	ErrInvalidTransition = errors.New("booking status transition not allowed")

	ErrSlotBusy = errors.New("room slot is locked by another request")

	ErrInvalidTimeRange = errors.New("end time must be after start time")
)
