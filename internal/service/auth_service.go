package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is how long an issued device token stays valid
const TokenTTL = 30 * 24 * time.Hour

var (
	// ErrAuthDisabled is returned when no signing secret is configured
	ErrAuthDisabled = errors.New("token authentication is disabled")
	// ErrPairingRejected is returned when a caller may not be issued a token
	ErrPairingRejected = errors.New("pairing code missing or wrong")
)

// TokenRequest describes who is asking for a token
type TokenRequest struct {
	PairingCode string
	Loopback    bool // the caller connected from this machine
}

// DeviceIdentity creates or returns the device user id
type DeviceIdentity interface {
	Ensure(ctx context.Context) (string, error)
}

// AuthService issues and verifies device tokens
type AuthService struct {
	identity    DeviceIdentity
	secret      []byte
	pairingCode []byte
	now         func() time.Time
}

// NewAuthService creates a new auth service. An empty secret disables tokens.
// With a pairing code set, only callers presenting it get a token; without
// one, only loopback callers do.
func NewAuthService(identity DeviceIdentity, secret, pairingCode string) *AuthService {
	return &AuthService{
		identity:    identity,
		secret:      []byte(secret),
		pairingCode: []byte(pairingCode),
		now:         time.Now,
	}
}

// Enabled reports whether tokens are issued and checked
func (s *AuthService) Enabled() bool {
	return len(s.secret) > 0
}

// IssueToken signs a token whose subject is the device user id
func (s *AuthService) IssueToken(ctx context.Context, req TokenRequest) (string, time.Time, error) {
	if !s.Enabled() {
		return "", time.Time{}, ErrAuthDisabled
	}
	if !s.paired(req) {
		return "", time.Time{}, ErrPairingRejected
	}
	userID, err := s.identity.Ensure(ctx)
	if err != nil {
		return "", time.Time{}, err
	}

	now := s.now()
	expires := now.Add(TokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}

func (s *AuthService) paired(req TokenRequest) bool {
	if len(s.pairingCode) == 0 {
		return req.Loopback
	}
	return subtle.ConstantTimeCompare([]byte(req.PairingCode), s.pairingCode) == 1
}

// VerifyToken checks the signature and expiry and returns the subject
func (s *AuthService) VerifyToken(tokenString string) (string, error) {
	if !s.Enabled() {
		return "", ErrAuthDisabled
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}
