package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/reloadggg/chatbot-rag/internal/ai"
)

const (
	UserTypeSystem = "system"
	UserTypeGuest  = "guest"
)

// ErrInvalidToken is the only verification error. Bad signature, malformed
// token and expiry are deliberately indistinguishable to the caller.
var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	jwt.RegisteredClaims
	UserType      string             `json:"user_type"`
	SessionID     string             `json:"session_id,omitempty"`
	APIConfig     *ai.ProviderConfig `json:"api_config,omitempty"`
	HasFullAccess bool               `json:"has_full_access,omitempty"`
}

// TokenCodec signs and verifies self-contained HS256 bearer tokens.
type TokenCodec struct {
	secret []byte
}

// NewTokenCodec builds a codec for the given signing secret. An empty secret
// is replaced by a random one so the service still functions without
// persisted secret material; tokens then do not survive a process restart.
func NewTokenCodec(secret string) (*TokenCodec, error) {
	if secret == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return nil, err
		}
		secret = base64.RawURLEncoding.EncodeToString(b)
		log.Printf("auth: JWT_SECRET not set, generated an ephemeral signing secret")
	}
	return &TokenCodec{secret: []byte(secret)}, nil
}

func (c *TokenCodec) Issue(claims *Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

func (c *TokenCodec) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
