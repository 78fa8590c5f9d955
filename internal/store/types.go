package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when the referenced patient or subscription does
// not exist.
var ErrNotFound = errors.New("record not found")

// TimeRange bounds a history scan. Either bound may be nil; From is
// inclusive and To is exclusive.
type TimeRange struct {
	From *time.Time
	To   *time.Time
}
