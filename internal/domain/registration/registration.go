package registration

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const StatusConfirmed = "confirmed"

// Registration is immutable once stored. Name, phone and email keep the
// registrant's casing and formatting; only comparison keys are normalized.
type Registration struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Phone             string    `json:"phone"`
	Email             string    `json:"email"`
	NewsletterConsent bool      `json:"newsletterConsent"`
	EventID           string    `json:"conferenceId"`
	RegisteredAt      time.Time `json:"registeredAt"`
	Status            string    `json:"status"`
}

// Candidate is an admission request as submitted by the registrant.
type Candidate struct {
	EventID           string `json:"conferenceId" validate:"notblank"`
	Name              string `json:"name" validate:"notblank"`
	Phone             string `json:"phone" validate:"notblank"`
	Email             string `json:"email" validate:"notblank,emailshape"`
	NewsletterConsent bool   `json:"newsletterConsent"`
}

// NewID returns "reg_<unix millis>_<random 128-bit hex>".
func NewID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "reg_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + suffix
}

// NewFromCandidate builds the record persisted on a successful admission.
func NewFromCandidate(c Candidate, id string, now time.Time) Registration {
	return Registration{
		ID:                id,
		Name:              strings.TrimSpace(c.Name),
		Phone:             strings.TrimSpace(c.Phone),
		Email:             strings.TrimSpace(c.Email),
		NewsletterConsent: c.NewsletterConsent,
		EventID:           c.EventID,
		RegisteredAt:      now.UTC(),
		Status:            StatusConfirmed,
	}
}
