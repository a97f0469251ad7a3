package chat

import "time"

// DefaultTitle is the placeholder a conversation starts with. Auto-titling
// only fires while the stored title still equals this value.
const DefaultTitle = "New Conversation"

type Conversation struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	SessionID string    `gorm:"type:varchar(26);uniqueIndex;not null" json:"session_id"`
	Title     string    `gorm:"type:varchar(255);not null" json:"title"`
	UserType  string    `gorm:"type:varchar(16);index;not null" json:"user_type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`
}

func (Conversation) TableName() string { return "conversations" }

type Message struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string    `gorm:"type:varchar(26);index;not null" json:"session_id"`
	Role      string    `gorm:"type:varchar(16);not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (Message) TableName() string { return "conversation_messages" }
