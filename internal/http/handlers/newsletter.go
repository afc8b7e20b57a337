package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/confreg/internal/domain/registration"
	"github.com/geocoder89/confreg/internal/newsletter"
	"github.com/gin-gonic/gin"
)

type NewsletterHandler struct {
	forwarder newsletter.Forwarder
	log       *slog.Logger
}

func NewNewsletterHandler(fwd newsletter.Forwarder, log *slog.Logger) *NewsletterHandler {
	if log == nil {
		log = slog.Default()
	}
	return &NewsletterHandler{forwarder: fwd, log: log}
}

type SubscribeRequest struct {
	Email string `json:"email"`
}

// Subscribe is the standalone signup form, unrelated to event registration, so
// unlike admission it reports every upstream failure to the caller.
func (h *NewsletterHandler) Subscribe(ctx *gin.Context) {
	var req SubscribeRequest

	if !BindJSON(ctx, &req) {
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		RespondBadRequest(ctx, "email_required", "email is required", nil)
		return
	}
	if !registration.IsValidEmail(email) {
		RespondBadRequest(ctx, "invalid_email", "invalid email address", nil)
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()

	outcome, err := h.forwarder.Subscribe(cctx, email)

	switch outcome {
	case newsletter.Subscribed:
		ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "Successfully subscribed to the newsletter"})
		return
	case newsletter.AlreadySubscribed:
		RespondBadRequest(ctx, "already_subscribed", "this email address is already subscribed to the newsletter", nil)
		return
	}

	var apiErr *newsletter.APIError
	switch {
	case errors.Is(err, newsletter.ErrNotConfigured):
		h.log.WarnContext(cctx, "newsletter subscribe requested but integration is not configured", "request_id", requestIDFrom(ctx))
		RespondInternal(ctx, "Server configuration error")
	case errors.Is(err, newsletter.ErrCircuitOpen):
		RespondError(ctx, http.StatusServiceUnavailable, "upstream_unavailable", "Newsletter service temporarily unavailable", nil)
	case errors.As(err, &apiErr):
		h.log.WarnContext(cctx, "newsletter subscribe rejected upstream", "status", apiErr.Status, "title", apiErr.Title, "request_id", requestIDFrom(ctx))
		RespondError(ctx, upstreamStatus(apiErr.Status), "upstream_error", apiErr.Message(), nil)
	default:
		h.log.ErrorContext(cctx, "newsletter subscribe failed", "err", err, "request_id", requestIDFrom(ctx))
		RespondInternal(ctx, "Could not subscribe, please try again later")
	}
}

func upstreamStatus(status int) int {
	if status < 400 || status > 599 {
		return http.StatusBadGateway
	}
	return status
}
