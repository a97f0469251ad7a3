package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/reloadggg/chatbot-rag/internal/ai"
)

const UserTypeGuest = "guest"

// Store persists guest sessions. Expiry is enforced lazily on Load; the bulk
// sweep exists only to reclaim storage.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Save upserts the session. On conflict the original created_at is kept and
// user_type, api_config and expires_at are replaced (refresh semantics).
func (s *Store) Save(ctx context.Context, sessionID string, cfg ai.ProviderConfig, ttl time.Duration) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	row := &GuestSession{
		SessionID: sessionID,
		UserType:  UserTypeGuest,
		APIConfig: string(raw),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_type", "api_config", "expires_at"}),
	}).Create(row).Error
}

// Load returns the session, or nil when it does not exist. A row whose
// expires_at has passed is deleted and reported as missing; readers must
// never observe an expired session.
func (s *Store) Load(ctx context.Context, sessionID string) (*GuestSession, error) {
	var row GuestSession
	err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if !s.now().Before(row.ExpiresAt) {
		if err := s.Delete(ctx, sessionID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return &row, nil
}

func (s *Store) Delete(ctx context.Context, sessionID string) error {
	return s.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&GuestSession{}).Error
}

// CleanupExpired removes every expired row and returns the count removed.
func (s *Store) CleanupExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", s.now().UTC()).Delete(&GuestSession{})
	return res.RowsAffected, res.Error
}

// ListActive returns the sessions that have not yet expired.
func (s *Store) ListActive(ctx context.Context) ([]GuestSession, error) {
	var rows []GuestSession
	err := s.db.WithContext(ctx).
		Where("expires_at > ?", s.now().UTC()).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
