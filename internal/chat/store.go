package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const titleMaxLen = 60

// Store persists conversations and their messages, one conversation per
// session id.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Ensure creates the conversation with the placeholder title if it does not
// exist, otherwise only bumps updated_at.
func (s *Store) Ensure(ctx context.Context, sessionID, userType string) error {
	return s.ensure(s.db.WithContext(ctx), sessionID, userType)
}

func (s *Store) ensure(tx *gorm.DB, sessionID, userType string) error {
	now := time.Now().UTC()
	row := &Conversation{
		SessionID: sessionID,
		Title:     DefaultTitle,
		UserType:  userType,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
	}).Create(row).Error
}

// AppendMessage trims the content and inserts it; blank content is a no-op
// that creates nothing. The first qualifying user message titles the
// conversation with its first line (truncated to 60 characters) as long as
// the title is still the placeholder. Returns the inserted message, or nil
// for the no-op case.
func (s *Store) AppendMessage(ctx context.Context, sessionID, role, content, userType string) (*Message, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, nil
	}

	msg := &Message{
		SessionID: sessionID,
		Role:      role,
		Content:   trimmed,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ensure(tx, sessionID, userType); err != nil {
			return err
		}
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		if err := tx.Model(&Conversation{}).
			Where("session_id = ?", sessionID).
			Update("updated_at", time.Now().UTC()).Error; err != nil {
			return err
		}
		if role == "user" {
			return maybeAutoTitle(tx, sessionID, trimmed)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func maybeAutoTitle(tx *gorm.DB, sessionID, content string) error {
	preview := firstLine(content)
	if preview == "" {
		return nil
	}

	var current string
	err := tx.Model(&Conversation{}).
		Where("session_id = ?", sessionID).
		Select("title").
		Scan(&current).Error
	if err != nil {
		return err
	}
	if current != DefaultTitle && strings.TrimSpace(current) != "" {
		return nil
	}

	return tx.Model(&Conversation{}).
		Where("session_id = ?", sessionID).
		Update("title", preview).Error
}

func firstLine(content string) string {
	line := content
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	runes := []rune(line)
	if len(runes) > titleMaxLen {
		line = string(runes[:titleMaxLen])
	}
	return line
}

// Rename stores the trimmed title, or restores the placeholder when the
// trimmed title is empty. Restoring the placeholder re-arms auto-titling.
func (s *Store) Rename(ctx context.Context, sessionID, title string) error {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		trimmed = DefaultTitle
	}
	return s.db.WithContext(ctx).Model(&Conversation{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]any{
			"title":      trimmed,
			"updated_at": time.Now().UTC(),
		}).Error
}

// Get returns the conversation, or nil when it does not exist.
func (s *Store) Get(ctx context.Context, sessionID string) (*Conversation, error) {
	var row Conversation
	err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// List returns conversations newest-activity first, optionally filtered by
// user type.
func (s *Store) List(ctx context.Context, userType string, limit int) ([]Conversation, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := s.db.WithContext(ctx).Order("updated_at DESC").Limit(limit)
	if userType != "" {
		q = q.Where("user_type = ?", userType)
	}
	var rows []Conversation
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetMessages returns the messages of a conversation oldest first.
func (s *Store) GetMessages(ctx context.Context, sessionID string) ([]Message, error) {
	var rows []Message
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListRecentDesc returns the most recent messages newest first, for building
// a bounded provider context window.
func (s *Store) ListRecentDesc(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []Message
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Delete removes the conversation and all of its messages.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&Message{}).Error; err != nil {
			return err
		}
		return tx.Where("session_id = ?", sessionID).Delete(&Conversation{}).Error
	})
}
