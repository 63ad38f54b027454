package session

import (
	"time"

	"gorm.io/datatypes"
)

type Session struct {
	ID              string         `json:"id" gorm:"primaryKey;size:36"`
	UserID          *uint          `json:"user_id,omitempty" gorm:"index"`
	DomainType      string         `json:"domain_type" gorm:"size:64;not null"`
	Phase           string         `json:"phase" gorm:"size:32;not null;default:'discovery'"`
	InitialMessage  string         `json:"initial_message"`
	DiscoveredFacts datatypes.JSON `json:"discovered_facts"`
	BusinessMetrics datatypes.JSON `json:"business_metrics"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt" gorm:"index"`
	Messages        []Message      `json:"-" gorm:"foreignKey:SessionID"`
}

type Message struct {
	ID        string    `json:"id" gorm:"primaryKey;size:26"` // ulid, sorts in append order
	SessionID string    `json:"session_id" gorm:"index;size:36;not null"`
	Role      string    `json:"role" gorm:"size:16;not null"` // "user" or "assistant"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Models lists the tables owned by this package, for AutoMigrate.
func Models() []any {
	return []any{&Session{}, &Message{}}
}
