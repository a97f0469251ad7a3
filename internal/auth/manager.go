package auth

import (
	"context"
	"time"

	"github.com/reloadggg/chatbot-rag/internal/ai"
	"github.com/reloadggg/chatbot-rag/internal/session"
)

const (
	systemTokenTTL = 24 * time.Hour

	defaultGuestTTLHours = 12

	// System login stays disabled until the operator configures a password
	// of at least this length. Re-checked on every call.
	minSystemPasswordLen = 8
)

// Manager issues and verifies credentials and resolves the provider config a
// verified principal is entitled to.
type Manager struct {
	codec    *TokenCodec
	sessions *session.Store

	systemPassword string
	systemConfig   ai.ProviderConfig
}

func NewManager(codec *TokenCodec, sessions *session.Store, systemPassword string, systemConfig ai.ProviderConfig) *Manager {
	return &Manager{
		codec:          codec,
		sessions:       sessions,
		systemPassword: systemPassword,
		systemConfig:   systemConfig,
	}
}

func (m *Manager) IsSystemModeEnabled() bool {
	return len(m.systemPassword) >= minSystemPasswordLen
}

func (m *Manager) ValidateSystemPassword(candidate string) bool {
	if !m.IsSystemModeEnabled() {
		return false
	}
	return candidate == m.systemPassword
}

func (m *Manager) IssueSystemToken() (string, error) {
	claims := &Claims{
		UserType:      UserTypeSystem,
		HasFullAccess: true,
	}
	claims.Subject = UserTypeSystem
	return m.codec.Issue(claims, systemTokenTTL)
}

// GuestCredentials is the result of a guest login.
type GuestCredentials struct {
	SessionID   string            `json:"session_id"`
	AccessToken string            `json:"access_token"`
	ExpiresAt   time.Time         `json:"expires_at"`
	Config      ai.ProviderConfig `json:"api_config"`
}

// IssueGuestToken persists the guest session (generating a fresh id when none
// is given) and returns a token whose expiry matches the session TTL. The
// config supplied at issuance is embedded in the token as a snapshot.
func (m *Manager) IssueGuestToken(ctx context.Context, sessionID string, cfg ai.ProviderConfig, ttlHours int) (*GuestCredentials, error) {
	if ttlHours <= 0 {
		ttlHours = defaultGuestTTLHours
	}
	if sessionID == "" {
		id, err := session.NewID()
		if err != nil {
			return nil, err
		}
		sessionID = id
	}

	ttl := time.Duration(ttlHours) * time.Hour
	if err := m.sessions.Save(ctx, sessionID, cfg, ttl); err != nil {
		return nil, err
	}

	claims := &Claims{
		UserType:  UserTypeGuest,
		SessionID: sessionID,
		APIConfig: &cfg,
	}
	claims.Subject = UserTypeGuest

	token, err := m.codec.Issue(claims, ttl)
	if err != nil {
		return nil, err
	}

	return &GuestCredentials{
		SessionID:   sessionID,
		AccessToken: token,
		ExpiresAt:   time.Now().UTC().Add(ttl),
		Config:      cfg,
	}, nil
}

func (m *Manager) Verify(token string) (*Claims, error) {
	return m.codec.Verify(token)
}

// ResolveEffectiveConfig maps verified claims to the provider config the
// principal operates with.
//
// System principals always get the operator settings; guest-supplied values
// never apply there. Guests get the current session record when it is still
// alive (the session may have been refreshed after the token was issued),
// falling back to the snapshot embedded in the token when the session is
// gone. Unknown principals get an empty config.
func (m *Manager) ResolveEffectiveConfig(ctx context.Context, claims *Claims) (ai.ProviderConfig, error) {
	switch claims.Subject {
	case UserTypeSystem:
		return m.systemConfig, nil

	case UserTypeGuest:
		if claims.SessionID != "" {
			sess, err := m.sessions.Load(ctx, claims.SessionID)
			if err != nil {
				return ai.ProviderConfig{}, err
			}
			if sess != nil {
				return sess.Config()
			}
		}
		if claims.APIConfig != nil {
			return *claims.APIConfig, nil
		}
		return ai.ProviderConfig{}, nil

	default:
		return ai.ProviderConfig{}, nil
	}
}

// DeleteGuestSession removes the session backing a guest token (logout).
func (m *Manager) DeleteGuestSession(ctx context.Context, sessionID string) error {
	return m.sessions.Delete(ctx, sessionID)
}

// CleanupExpiredSessions bulk-removes expired guest sessions. Lazy expiry on
// load already guarantees correctness; this only reclaims storage.
func (m *Manager) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	return m.sessions.CleanupExpired(ctx)
}
