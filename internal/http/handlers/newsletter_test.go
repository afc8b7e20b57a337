package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geocoder89/confreg/internal/domain/registration"
	"github.com/geocoder89/confreg/internal/http/handlers"
	"github.com/geocoder89/confreg/internal/newsletter"
)

type fakeForwarder struct {
	subscribeFn func(ctx context.Context, email string) (newsletter.Outcome, error)
}

func (f *fakeForwarder) Subscribe(ctx context.Context, email string) (newsletter.Outcome, error) {
	if f.subscribeFn != nil {
		return f.subscribeFn(ctx, email)
	}
	return newsletter.Subscribed, nil
}

func TestNewsletterSubscribeHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		outcome        newsletter.Outcome
		err            error
		wantStatusCode int
		wantSuccess    bool
	}{
		{name: "subscribed", body: `{"email":"a@b.com"}`, outcome: newsletter.Subscribed, wantStatusCode: http.StatusOK, wantSuccess: true},
		{name: "missing_email", body: `{}`, wantStatusCode: http.StatusBadRequest},
		{name: "invalid_email", body: `{"email":"nope"}`, wantStatusCode: http.StatusBadRequest},
		{name: "already_subscribed", body: `{"email":"a@b.com"}`, outcome: newsletter.AlreadySubscribed, wantStatusCode: http.StatusBadRequest},
		{name: "not_configured", body: `{"email":"a@b.com"}`, outcome: newsletter.Skipped, err: newsletter.ErrNotConfigured, wantStatusCode: http.StatusInternalServerError},
		{name: "circuit_open", body: `{"email":"a@b.com"}`, outcome: newsletter.Failed, err: newsletter.ErrCircuitOpen, wantStatusCode: http.StatusServiceUnavailable},
		{
			name: "upstream_rejects", body: `{"email":"a@b.com"}`, outcome: newsletter.Failed,
			err:            &newsletter.APIError{Status: http.StatusUnauthorized, Title: "API Key Invalid"},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name: "upstream_rejects_wrapped", body: `{"email":"a@b.com"}`, outcome: newsletter.Failed,
			err:            registration.UpstreamError("mailing list rejected member", &newsletter.APIError{Status: http.StatusForbidden, Title: "Forbidden"}),
			wantStatusCode: http.StatusForbidden,
		},
		{name: "network", body: `{"email":"a@b.com"}`, outcome: newsletter.Failed, err: errors.New("dial tcp"), wantStatusCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			fwd := &fakeForwarder{subscribeFn: func(ctx context.Context, email string) (newsletter.Outcome, error) {
				return tt.outcome, tt.err
			}}
			h := handlers.NewNewsletterHandler(fwd, nil)
			r := setupRouter(http.MethodPost, "/mailchimp-subscribe", h.Subscribe)

			req := httptest.NewRequest(http.MethodPost, "/mailchimp-subscribe", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			var resp map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp["success"] != tt.wantSuccess {
				t.Fatalf("success = %v, want %v", resp["success"], tt.wantSuccess)
			}
		})
	}
}

type requestKey struct{}

func TestNewsletterSubscribeHandler_UsesRequestContext(t *testing.T) {
	var got any
	fwd := &fakeForwarder{subscribeFn: func(ctx context.Context, email string) (newsletter.Outcome, error) {
		got = ctx.Value(requestKey{})
		if _, ok := ctx.Deadline(); !ok {
			t.Errorf("expected a bounded context")
		}
		return newsletter.Subscribed, nil
	}}
	h := handlers.NewNewsletterHandler(fwd, nil)
	r := setupRouter(http.MethodPost, "/mailchimp-subscribe", h.Subscribe)

	req := httptest.NewRequest(http.MethodPost, "/mailchimp-subscribe", bytes.NewBufferString(`{"email":"a@b.com"}`))
	req = req.WithContext(context.WithValue(req.Context(), requestKey{}, "req-1"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
	if got != "req-1" {
		t.Fatalf("forwarder did not receive the request context, got %v", got)
	}
}
