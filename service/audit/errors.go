package audit

import "errors"

var (
	// ErrPartitionClosed is returned when appending to a day older than the newest day written.
	ErrPartitionClosed = errors.New("audit: partition closed")

	// ErrTampered is returned by Verify when the hash chain does not match.
	ErrTampered = errors.New("audit: hash chain mismatch")

	// ErrChainConflict is returned by Append when the entry does not extend
	// the partition tail, typically because another writer appended first.
	ErrChainConflict = errors.New("audit: partition tail moved")

	// ErrInvalidDay is returned for a day not in 2006-01-02 format.
	ErrInvalidDay = errors.New("audit: invalid day")
)
