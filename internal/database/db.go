package database

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Database struct {
	*gorm.DB
}

func NewDatabase(dsn string) (*Database, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Println("Connected to database successfully")

	return &Database{db}, nil
}

// SQL exposes the underlying pool for the raw-SQL repositories.
func (db *Database) SQL() (*sql.DB, error) {
	return db.DB.DB()
}

func (db *Database) Migrate() error {
	err := db.AutoMigrate(&Conversation{}, &Thread{}, &Message{})
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Println("Database migration completed")
	return nil
}

// Conversation is the storage model behind the chat repository. Participants
// are kept in a join-free text array column; order of first insertion is
// preserved.
type Conversation struct {
	ID            string         `gorm:"type:uuid;primaryKey"`
	Participants  pq.StringArray `gorm:"type:text[];not null"`
	OrderID       *string        `gorm:"index"`
	LastMessageID *string        `gorm:"type:uuid"`
	LastActivity  time.Time
	CreatedAt     time.Time
}

// Thread rows are unique per (conversation, kind, order); the general thread
// of a conversation is the row with kind "general" and a NULL order id. The
// composite index does not cover NULL-order rows (Postgres compares NULLs as
// distinct in unique indexes), so a partial index on (conversation_id, kind)
// enforces the general-thread singleton.
type Thread struct {
	ID             string  `gorm:"type:uuid;primaryKey"`
	ConversationID string  `gorm:"type:uuid;not null;index:idx_thread_scope,unique;index:idx_thread_general,unique,where:order_id IS NULL"`
	Kind           string  `gorm:"not null;index:idx_thread_scope,unique;index:idx_thread_general,unique"`
	OrderID        *string `gorm:"index:idx_thread_scope,unique"`
	LastMessageID  *string `gorm:"type:uuid"`
	LastActivity   time.Time
	CreatedAt      time.Time
}

type Message struct {
	ID             string         `gorm:"type:uuid;primaryKey"`
	ConversationID string         `gorm:"type:uuid;index;not null"`
	ThreadID       string         `gorm:"type:uuid;index;not null"`
	SenderID       string         `gorm:"not null"`
	Content        string         `gorm:"not null"`
	Attachments    pq.StringArray `gorm:"type:text[]"`
	IsRead         bool           `gorm:"not null;default:false"`
	CreatedAt      time.Time
}
