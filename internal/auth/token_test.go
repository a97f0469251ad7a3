package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/reloadggg/chatbot-rag/internal/ai"
)

func newTestCodec(t *testing.T) *TokenCodec {
	t.Helper()
	codec, err := NewTokenCodec("unit-test-secret")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	return codec
}

func TestIssueAndVerify(t *testing.T) {
	codec := newTestCodec(t)

	claims := &Claims{
		UserType:  UserTypeGuest,
		SessionID: "01HTESTSESSIONID0000000000",
		APIConfig: &ai.ProviderConfig{LLMProvider: "openai", LLMAPIKey: "sk-abc"},
	}
	claims.Subject = UserTypeGuest

	token, err := codec.Issue(claims, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	got, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.UserType != UserTypeGuest || got.SessionID != claims.SessionID {
		t.Fatalf("claims did not round-trip: %+v", got)
	}
	if got.APIConfig == nil || got.APIConfig.LLMAPIKey != "sk-abc" {
		t.Fatalf("config snapshot lost: %+v", got.APIConfig)
	}
	if !got.ExpiresAt.After(time.Now()) {
		t.Fatalf("expected future expiry, got %v", got.ExpiresAt)
	}
}

func TestVerifyFailuresAreUniform(t *testing.T) {
	codec := newTestCodec(t)
	other, err := NewTokenCodec("a-different-secret")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	sys := &Claims{UserType: UserTypeSystem}
	sys.Subject = UserTypeSystem

	valid, err := codec.Issue(sys, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	foreign, err := other.Issue(sys, time.Hour)
	if err != nil {
		t.Fatalf("issue foreign: %v", err)
	}
	expired, err := codec.Issue(sys, -time.Minute)
	if err != nil {
		t.Fatalf("issue expired: %v", err)
	}

	// alg=none must be rejected by the signing-method allowlist
	noSubject := &Claims{UserType: UserTypeSystem}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, sys).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	missingSubject, err := codec.Issue(noSubject, time.Hour)
	if err != nil {
		t.Fatalf("issue without subject: %v", err)
	}

	for name, token := range map[string]string{
		"garbage":         "not-a-token",
		"truncated":       valid[:len(valid)-10],
		"wrong secret":    foreign,
		"expired":         expired,
		"alg none":        unsigned,
		"missing subject": missingSubject,
	} {
		if _, err := codec.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}

	if _, err := codec.Verify(valid); err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}
}

func TestEmptySecretGeneratesOne(t *testing.T) {
	a, err := NewTokenCodec("")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	b, err := NewTokenCodec("")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	sys := &Claims{UserType: UserTypeSystem}
	sys.Subject = UserTypeSystem
	token, err := a.Issue(sys, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := a.Verify(token); err != nil {
		t.Fatalf("self verify: %v", err)
	}
	// independent random secrets must not accept each other's tokens
	if _, err := b.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected cross-codec rejection, got %v", err)
	}
}

func TestTokenIsBearerShaped(t *testing.T) {
	codec := newTestCodec(t)
	sys := &Claims{UserType: UserTypeSystem}
	sys.Subject = UserTypeSystem

	token, err := codec.Issue(sys, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("expected a compact JWS, got %q", token)
	}
}
