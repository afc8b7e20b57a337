package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/confreg/internal/admission"
	"github.com/geocoder89/confreg/internal/domain/registration"
	"github.com/gin-gonic/gin"
)

const admitTimeout = 10 * time.Second

type Admitter interface {
	Admit(ctx context.Context, c registration.Candidate) (admission.Result, error)
	Capacity() int
}

type RegistrationQuerier interface {
	ListFor(ctx context.Context, eventID string) ([]registration.Registration, error)
}

type RegistrationHandler struct {
	admitter Admitter
	query    RegistrationQuerier
	log      *slog.Logger
}

func NewRegistrationHandler(admitter Admitter, query RegistrationQuerier, log *slog.Logger) *RegistrationHandler {
	if log == nil {
		log = slog.Default()
	}
	return &RegistrationHandler{admitter: admitter, query: query, log: log}
}

type RegisterRequest struct {
	Name              string       `json:"name"`
	Phone             string       `json:"phone"`
	Email             string       `json:"email"`
	NewsletterConsent FlexibleBool `json:"newsletterConsent"`
	ConferenceID      FlexibleID   `json:"conferenceId"`
}

type RegisterResponse struct {
	Success          bool    `json:"success"`
	RegistrationID   string  `json:"registrationId"`
	NewsletterResult *string `json:"newsletterResult"`
	Message          string  `json:"message"`
}

type ListRegistrationsResponse struct {
	Success       bool                        `json:"success"`
	ConferenceID  string                      `json:"conferenceId"`
	Count         int                         `json:"count"`
	Capacity      int                         `json:"capacity"`
	Registrations []registration.Registration `json:"registrations"`
}

func (h *RegistrationHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// the newsletter call runs after commit, so a client hang-up must not cancel it
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx.Request.Context()), admitTimeout)
	defer cancel()

	res, err := h.admitter.Admit(cctx, registration.Candidate{
		EventID:           string(req.ConferenceID),
		Name:              req.Name,
		Phone:             req.Phone,
		Email:             req.Email,
		NewsletterConsent: bool(req.NewsletterConsent),
	})

	if err != nil {
		if registration.IsRejection(err) {
			RespondBadRequest(ctx, rejectionCode(err), err.Error(), nil)
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "registration failed", "err", err, "request_id", requestIDFrom(ctx))
		RespondInternal(ctx, "Could not complete registration, please try again later")
		return
	}

	var newsletterResult *string
	if res.Newsletter != nil {
		s := string(*res.Newsletter)
		newsletterResult = &s
	}

	ctx.JSON(http.StatusOK, RegisterResponse{
		Success:          true,
		RegistrationID:   res.Registration.ID,
		NewsletterResult: newsletterResult,
		Message:          "Registration successful. See you at the event!",
	})
}

func (h *RegistrationHandler) ListForConference(ctx *gin.Context) {
	conferenceID := ctx.Param("conferenceId")

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()

	regs, err := h.query.ListFor(cctx, conferenceID)
	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "list registrations failed", "conference_id", conferenceID, "err", err)
		RespondInternal(ctx, "Could not list registrations")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, ListRegistrationsResponse{
		Success:       true,
		ConferenceID:  conferenceID,
		Count:         len(regs),
		Capacity:      h.admitter.Capacity(),
		Registrations: regs,
	})
}

func rejectionCode(err error) string {
	switch {
	case errors.Is(err, registration.ErrRequiredFields):
		return "required_fields_missing"
	case errors.Is(err, registration.ErrInvalidEmail):
		return "invalid_email"
	case errors.Is(err, registration.ErrEmailTaken):
		return "email_already_registered"
	case errors.Is(err, registration.ErrPhoneTaken):
		return "phone_already_registered"
	case errors.Is(err, registration.ErrEventFull):
		return "event_full"
	default:
		return string(registration.KindOf(err))
	}
}
