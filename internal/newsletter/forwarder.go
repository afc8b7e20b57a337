// Package newsletter forwards consenting registrants to a third-party mailing list.
// Every call is best effort: callers get an Outcome they can report, never a reason
// to fail the registration itself.
package newsletter

import (
	"context"
	"errors"
	"fmt"
)

type Outcome string

const (
	Subscribed        Outcome = "subscribed"
	AlreadySubscribed Outcome = "already_subscribed"
	Skipped           Outcome = "skipped"
	Failed            Outcome = "failed"
)

var (
	ErrNotConfigured = errors.New("newsletter integration not configured")
	ErrCircuitOpen   = errors.New("circuit breaker open")
)

// Forwarder returns Subscribed or AlreadySubscribed with a nil error, Skipped with
// ErrNotConfigured, and Failed with the underlying error otherwise.
type Forwarder interface {
	Subscribe(ctx context.Context, email string) (Outcome, error)
}

// APIError is a non-2xx answer from the list provider.
type APIError struct {
	Status int
	Title  string
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mailing list api %d: %s", e.Status, e.Message())
}

// Message prefers the provider's detail over its title.
func (e *APIError) Message() string {
	switch {
	case e.Detail != "":
		return e.Detail
	case e.Title != "":
		return e.Title
	default:
		return "mailing list error"
	}
}
