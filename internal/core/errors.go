package core

import (
	"errors"
	"fmt"
)

// ValidationError reports a missing or malformed submission field. The
// message is surfaced verbatim to the caller; nothing is written when a
// submission fails validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("Missing required field: %s", e.Field)
	}
	return fmt.Sprintf("Invalid field %s: %s", e.Field, e.Reason)
}

// DateParseError reports a date input that no accepted layout could parse.
type DateParseError struct {
	Field string
	Input string
}

func (e DateParseError) Error() string {
	return fmt.Sprintf("cannot parse date %q in field %s", e.Input, e.Field)
}

// IndexFormatError reports a sequencing index of unrecognized shape in a
// position that requires one.
type IndexFormatError struct {
	Field    string
	Position int
	Input    string
}

func (e IndexFormatError) Error() string {
	return fmt.Sprintf("unrecognized sequencing index %q at position %d in field %s", e.Input, e.Position+1, e.Field)
}

// ErrLogBusy is surfaced when the optimistic-concurrency retry budget is
// exhausted: another writer kept winning the conditional save.
var ErrLogBusy = errors.New("log is being updated by another submission, please retry")

// IsRejection reports whether err is a submission rejection (as opposed to an
// infrastructure failure): validation, subject lookup, date or index format.
func IsRejection(err error) bool {
	var ve ValidationError
	var se UnknownSubjectError
	var de DateParseError
	var ie IndexFormatError
	return errors.As(err, &ve) || errors.As(err, &se) || errors.As(err, &de) || errors.As(err, &ie)
}
