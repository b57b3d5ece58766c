package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

type staticIdentity string

var loopbackCaller = TokenRequest{Loopback: true}

func (s staticIdentity) Ensure(context.Context) (string, error) { return string(s), nil }

func TestIssueAndVerifyToken(t *testing.T) {
	svc := NewAuthService(staticIdentity("device-1"), "secret", "")

	token, expires, err := svc.IssueToken(context.Background(), loopbackCaller)
	if err != nil {
		t.Fatalf("IssueToken returned error: %v", err)
	}
	if time.Until(expires) < TokenTTL-time.Minute {
		t.Fatalf("unexpected expiry %v", expires)
	}

	sub, err := svc.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken returned error: %v", err)
	}
	if sub != "device-1" {
		t.Fatalf("expected subject device-1, got %q", sub)
	}
}

func TestVerifyTokenRejectsOtherSecret(t *testing.T) {
	token, _, err := NewAuthService(staticIdentity("device-1"), "secret", "").IssueToken(context.Background(), loopbackCaller)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewAuthService(staticIdentity("device-1"), "other", "").VerifyToken(token); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	svc := NewAuthService(staticIdentity("device-1"), "secret", "")
	svc.now = func() time.Time { return time.Now().Add(-2 * TokenTTL) }
	token, _, err := svc.IssueToken(context.Background(), loopbackCaller)
	if err != nil {
		t.Fatal(err)
	}

	svc.now = time.Now
	if _, err := svc.VerifyToken(token); err == nil {
		t.Fatal("expected expiry error")
	}
}

func TestAuthDisabledWithoutSecret(t *testing.T) {
	svc := NewAuthService(staticIdentity("device-1"), "", "")
	if svc.Enabled() {
		t.Fatal("expected auth to be disabled")
	}
	if _, _, err := svc.IssueToken(context.Background(), loopbackCaller); !errors.Is(err, ErrAuthDisabled) {
		t.Fatalf("expected ErrAuthDisabled, got %v", err)
	}
}

func TestIssueTokenWithoutPairingCodeIsLoopbackOnly(t *testing.T) {
	svc := NewAuthService(staticIdentity("device-1"), "secret", "")

	if _, _, err := svc.IssueToken(context.Background(), TokenRequest{}); !errors.Is(err, ErrPairingRejected) {
		t.Fatalf("expected remote caller to be rejected, got %v", err)
	}
	if _, _, err := svc.IssueToken(context.Background(), TokenRequest{PairingCode: "anything"}); !errors.Is(err, ErrPairingRejected) {
		t.Fatalf("expected unconfigured pairing code to be rejected, got %v", err)
	}
	if _, _, err := svc.IssueToken(context.Background(), loopbackCaller); err != nil {
		t.Fatalf("expected loopback caller to get a token, got %v", err)
	}
}

func TestIssueTokenRequiresPairingCode(t *testing.T) {
	svc := NewAuthService(staticIdentity("device-1"), "secret", "482913")

	tests := []struct {
		name string
		req  TokenRequest
		ok   bool
	}{
		{"no code", TokenRequest{}, false},
		{"wrong code", TokenRequest{PairingCode: "000000"}, false},
		{"loopback without code", TokenRequest{Loopback: true}, false},
		{"right code", TokenRequest{PairingCode: "482913"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, _, err := svc.IssueToken(context.Background(), tt.req)
			if tt.ok {
				if err != nil || token == "" {
					t.Fatalf("expected a token, got %q, %v", token, err)
				}
				return
			}
			if !errors.Is(err, ErrPairingRejected) {
				t.Fatalf("expected ErrPairingRejected, got %v", err)
			}
		})
	}
}
