package db

import (
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/reloadggg/chatbot-rag/internal/chat"
	"github.com/reloadggg/chatbot-rag/internal/session"
)

// Connect opens the relational store and migrates the schema. A DSN with a
// tcp() host part selects MySQL; anything else is treated as a sqlite file.
func Connect(dsn string) (*gorm.DB, error) {
	var (
		gdb *gorm.DB
		err error
	)
	if strings.Contains(dsn, "@tcp(") {
		gdb, err = gorm.Open(mysql.Open(dsn), &gorm.Config{})
	} else {
		gdb, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	}
	if err != nil {
		return nil, err
	}

	if err := gdb.AutoMigrate(
		&session.GuestSession{},
		&chat.Conversation{},
		&chat.Message{},
		&chat.QueryJob{},
	); err != nil {
		return nil, err
	}
	return gdb, nil
}
