package socialgraph

import "errors"

// Error kinds. Every error the service returns for a rejected operation wraps
// exactly one of these; match with errors.Is.
var (
	ErrSelfAction       = errors.New("cannot act on yourself")
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrDuplicateRequest = errors.New("duplicate follow request")
	ErrNoChange         = errors.New("no changes were made")
)

// opError carries a user-facing message for one operation while still
// matching its kind.
type opError struct {
	kind error
	msg  string
}

func (e *opError) Error() string { return e.msg }
func (e *opError) Unwrap() error { return e.kind }

func fail(kind error, msg string) error {
	return &opError{kind: kind, msg: msg}
}

// IsRejection reports whether err is one of the error kinds above rather than
// a store or server failure.
func IsRejection(err error) bool {
	return errors.Is(err, ErrSelfAction) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrDuplicateRequest) ||
		errors.Is(err, ErrNoChange)
}
