package registration

import "errors"

type Kind string

const (
	KindValidation Kind = "validation"
	KindDuplicate  Kind = "duplicate"
	KindCapacity   Kind = "capacity"
	KindUpstream   Kind = "upstream"
	KindStorage    Kind = "storage"
)

// Error carries a human readable message and the category the HTTP layer maps to a status.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

var (
	ErrRequiredFields = &Error{Kind: KindValidation, Message: "required fields missing"}
	ErrInvalidEmail   = &Error{Kind: KindValidation, Message: "invalid email format"}
	ErrEmailTaken     = &Error{Kind: KindDuplicate, Message: "email already registered"}
	ErrPhoneTaken     = &Error{Kind: KindDuplicate, Message: "phone already registered"}
	ErrEventFull      = &Error{Kind: KindCapacity, Message: "event full"}
)

func StorageError(op string, err error) error {
	return &Error{Kind: KindStorage, Message: op, Err: err}
}

func UpstreamError(op string, err error) error {
	return &Error{Kind: KindUpstream, Message: op, Err: err}
}

// KindOf returns the category of err, or "" for errors outside the taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsRejection reports whether err is a client-correctable admission rejection.
func IsRejection(err error) bool {
	switch KindOf(err) {
	case KindValidation, KindDuplicate, KindCapacity:
		return true
	}
	return false
}
