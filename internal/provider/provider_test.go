package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/minewatch/go-mine-alerts/internal/config"
	"github.com/minewatch/go-mine-alerts/internal/message"
	"github.com/minewatch/go-mine-alerts/internal/models"
)

func testDevice() *models.Device {
	return &models.Device{
		ID:             "dev-1",
		OwnerName:      "Test Operator",
		PhoneNumber:    "+15550001",
		Email:          "operator@example.com",
		PushToken:      "tok-1",
		ZoneAssignment: "Z1",
		IsActive:       true,
		Preferences:    models.DefaultPreferences(),
	}
}

func testMessage() message.Rendered {
	return message.Rendered{
		Title: "High risk in North Pit",
		Body:  "Risk score 8.7 in North Pit.",
	}
}

func TestValidateTarget(t *testing.T) {
	d := testDevice()

	for _, ch := range models.DispatchOrder {
		if err := ValidateTarget(d, ch); err != nil {
			t.Errorf("fully populated device should validate for %s: %v", ch, err)
		}
	}

	noPhone := testDevice()
	noPhone.PhoneNumber = ""
	if err := ValidateTarget(noPhone, models.ChannelSMS); err == nil {
		t.Error("expected SMS validation failure without a phone number")
	}

	noPush := testDevice()
	noPush.PushToken = ""
	noPush.PushSubscription = ""
	if err := ValidateTarget(noPush, models.ChannelPush); err == nil {
		t.Error("expected push validation failure without a token or subscription")
	}

	subOnly := testDevice()
	subOnly.PushToken = ""
	subOnly.PushSubscription = `{"endpoint":"https://push.example.com/sub"}`
	if err := ValidateTarget(subOnly, models.ChannelPush); err != nil {
		t.Errorf("web push subscription alone should validate: %v", err)
	}

	noEmail := testDevice()
	noEmail.Email = ""
	if err := ValidateTarget(noEmail, models.ChannelEmail); err == nil {
		t.Error("expected email validation failure without an address")
	}

	if err := ValidateTarget(d, models.Channel("fax")); err == nil {
		t.Error("expected validation failure for an unknown channel")
	}
}

func TestSimulated_AlwaysSucceedsAtRateOne(t *testing.T) {
	s := NewSimulated(models.ChannelPush, 1.0, 0, 1)

	for i := 0; i < 50; i++ {
		out, err := s.Send(context.Background(), testDevice(), testMessage())
		if err != nil {
			t.Fatalf("send %d failed at success rate 1.0: %v", i, err)
		}
		if !strings.HasPrefix(out.ProviderRef, "sim-") {
			t.Fatalf("expected simulated provider ref, got %q", out.ProviderRef)
		}
	}
}

func TestSimulated_AlwaysFailsAtRateZero(t *testing.T) {
	s := NewSimulated(models.ChannelSMS, 0, 0, 1)

	for i := 0; i < 50; i++ {
		if _, err := s.Send(context.Background(), testDevice(), testMessage()); err == nil {
			t.Fatalf("send %d succeeded at success rate 0", i)
		}
	}
}

func TestSimulated_RespectsContextDuringDelay(t *testing.T) {
	s := NewSimulated(models.ChannelPush, 1.0, time.Minute, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := s.Send(ctx, testDevice(), testMessage()); err == nil {
		t.Fatal("expected context error when cancelled mid-delay")
	}
}

func TestPushProvider_Send(t *testing.T) {
	var got pushPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected authorization header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
		json.NewEncoder(w).Encode(pushResponse{MessageID: "push-42"})
	}))
	defer srv.Close()

	p, err := NewPushProvider(PushConfig{GatewayURL: srv.URL, APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewPushProvider failed: %v", err)
	}

	out, err := p.Send(context.Background(), testDevice(), testMessage())
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if out.ProviderRef != "push-42" {
		t.Errorf("expected provider ref push-42, got %q", out.ProviderRef)
	}
	if got.To != "tok-1" || got.Title == "" || got.Body == "" {
		t.Errorf("unexpected payload: %+v", got)
	}
}

func TestPushProvider_GatewayErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "http error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "upstream unavailable", http.StatusBadGateway)
			},
		},
		{
			name: "rejected in body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(pushResponse{Error: "invalid token"})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			p, err := NewPushProvider(PushConfig{GatewayURL: srv.URL, APIKey: "test-key"})
			if err != nil {
				t.Fatalf("NewPushProvider failed: %v", err)
			}
			if _, err := p.Send(context.Background(), testDevice(), testMessage()); err == nil {
				t.Error("expected send error")
			}
		})
	}
}

func TestSMSProvider_Send(t *testing.T) {
	var got smsPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
		json.NewEncoder(w).Encode(smsResponse{MessageID: "sms-7"})
	}))
	defer srv.Close()

	p, err := NewSMSProvider(SMSConfig{GatewayURL: srv.URL, APIKey: "test-key", Sender: "MINEALERT"})
	if err != nil {
		t.Fatalf("NewSMSProvider failed: %v", err)
	}

	out, err := p.Send(context.Background(), testDevice(), testMessage())
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if out.ProviderRef != "sms-7" {
		t.Errorf("expected provider ref sms-7, got %q", out.ProviderRef)
	}
	if got.To != "+15550001" || got.From != "MINEALERT" || got.Text == "" {
		t.Errorf("unexpected payload: %+v", got)
	}
}

func TestProviderConfigValidation(t *testing.T) {
	if _, err := NewPushProvider(PushConfig{APIKey: "k"}); err == nil {
		t.Error("expected push construction to fail without a gateway URL")
	}
	if _, err := NewSMSProvider(SMSConfig{GatewayURL: "https://sms.example.com"}); err == nil {
		t.Error("expected SMS construction to fail without an API key")
	}
	if _, err := NewEmailProvider(EmailConfig{Port: 587, From: "alerts@example.com"}); err == nil {
		t.Error("expected email construction to fail without a host")
	}
}

func TestNewSet_UnconfiguredChannelsSimulated(t *testing.T) {
	set := NewSet(config.ProvidersConfig{}, 5*time.Second)

	for _, ch := range models.DispatchOrder {
		p, ok := set[ch]
		if !ok {
			t.Fatalf("missing provider for %s", ch)
		}
		if _, simulated := p.(*Simulated); !simulated {
			t.Errorf("expected simulated provider for unconfigured %s, got %T", ch, p)
		}
		if p.Channel() != ch {
			t.Errorf("provider for %s reports channel %s", ch, p.Channel())
		}
	}
}

func TestNewSet_ConfiguredChannelUsesRealProvider(t *testing.T) {
	set := NewSet(config.ProvidersConfig{
		PushGatewayURL: "https://push.example.com/send",
		PushGatewayKey: "key",
	}, 5*time.Second)

	if _, ok := set[models.ChannelPush].(*PushProvider); !ok {
		t.Errorf("expected real push provider, got %T", set[models.ChannelPush])
	}
	if _, ok := set[models.ChannelSMS].(*Simulated); !ok {
		t.Errorf("expected simulated SMS provider, got %T", set[models.ChannelSMS])
	}
}

func TestNewSet_BadCredentialsDegradeToSimulation(t *testing.T) {
	// URL present but key missing fails construction and falls back.
	set := NewSet(config.ProvidersConfig{
		SMSGatewayURL: "https://sms.example.com/send",
	}, 5*time.Second)

	if _, ok := set[models.ChannelSMS].(*Simulated); !ok {
		t.Errorf("expected fallback to simulation on bad SMS credentials, got %T", set[models.ChannelSMS])
	}
}
