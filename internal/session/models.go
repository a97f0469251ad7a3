package session

import (
	"crypto/rand"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/reloadggg/chatbot-rag/internal/ai"
)

// GuestSession is a TTL-bound guest record. The provider config is stored as
// a JSON text column so the row shape is stable across config changes.
type GuestSession struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	SessionID string    `gorm:"type:varchar(26);uniqueIndex;not null" json:"session_id"`
	UserType  string    `gorm:"type:varchar(16);not null" json:"user_type"`
	APIConfig string    `gorm:"type:text;not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
}

func (GuestSession) TableName() string { return "guest_sessions" }

// Config decodes the stored provider config.
func (s *GuestSession) Config() (ai.ProviderConfig, error) {
	var cfg ai.ProviderConfig
	if s.APIConfig == "" {
		return cfg, nil
	}
	if err := json.Unmarshal([]byte(s.APIConfig), &cfg); err != nil {
		return ai.ProviderConfig{}, err
	}
	return cfg, nil
}

// NewID returns a fresh 26-character session id.
func NewID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
