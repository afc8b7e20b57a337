package newsletter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/geocoder89/confreg/internal/domain/registration"
	"github.com/geocoder89/confreg/internal/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const memberExistsTitle = "Member Exists"

type MailchimpConfig struct {
	APIKey       string
	ServerPrefix string
	AudienceID   string
	// BaseURL overrides https://<ServerPrefix>.api.mailchimp.com
	BaseURL    string
	HTTPClient *http.Client
}

type Mailchimp struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewMailchimp(cfg MailchimpConfig) *Mailchimp {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://" + cfg.ServerPrefix + ".api.mailchimp.com"
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Mailchimp{
		endpoint: base + "/3.0/lists/" + url.PathEscape(cfg.AudienceID) + "/members",
		apiKey:   cfg.APIKey,
		client:   client,
	}
}

type memberRequest struct {
	EmailAddress string `json:"email_address"`
	Status       string `json:"status"`
}

type errorBody struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (m *Mailchimp) Subscribe(ctx context.Context, email string) (outcome Outcome, err error) {
	ctx, span := observability.Tracer().Start(ctx, "newsletter.mailchimp.subscribe")
	defer func() {
		span.SetAttributes(attribute.String("newsletter.outcome", string(outcome)))
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	body, err := json.Marshal(memberRequest{EmailAddress: strings.TrimSpace(email), Status: "subscribed"})
	if err != nil {
		return Failed, fmt.Errorf("encode member: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return Failed, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth("any", m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return Failed, registration.UpstreamError("mailing list request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Subscribed, nil
	}

	var eb errorBody
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&eb)

	if resp.StatusCode == http.StatusBadRequest && eb.Title == memberExistsTitle {
		return AlreadySubscribed, nil
	}

	return Failed, registration.UpstreamError("mailing list rejected member", &APIError{Status: resp.StatusCode, Title: eb.Title, Detail: eb.Detail})
}
