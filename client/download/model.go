package download

import (
	"errors"
	"fmt"
)

var (
	ErrContentLengthMismatch = errors.New("content length mismatch")
	ErrChecksumMismatch      = errors.New("checksum mismatch")
)

// Error is a download whose bytes arrived but failed verification. The
// destination file is left untouched.
type Error struct {
	Path   string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("download to %s: %v: %s", e.Path, e.Err, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}
