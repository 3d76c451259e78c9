// Package sanitizer normalizes free-text input before validation and storage.
//
// All functions are idempotent and never fail: invalid input comes back
// empty or unchanged, and validation decides what to do with it.
package sanitizer
