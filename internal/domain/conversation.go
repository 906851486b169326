package domain

import (
	"time"

	"gorm.io/datatypes"
)

const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
)

type Conversation struct {
	ID              uint                        `gorm:"primaryKey"`
	ParticipantsID  datatypes.JSONSlice[string] `gorm:"column:participants_id;not null"`
	RecipientID     *string                     `gorm:"size:255"`
	NameParticipant string                      `gorm:"size:255;not null"`
	NameRecipient   string                      `gorm:"size:255;not null"`
	LastMessage     *string                     `gorm:"type:text"`
	LastDate        time.Time                   `gorm:"not null"`
	MessageStatus   string                      `gorm:"size:255;not null"`
	UnreadCount     int                         `gorm:"not null"`
	Online          bool                        `gorm:"not null"`
	NewConversation bool                        `gorm:"not null"`

	Messages []Message `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

type Message struct {
	ID             uint       `gorm:"primaryKey"`
	ConversationID uint       `gorm:"index;not null"`
	SenderID       string     `gorm:"column:envoyeur_id;size:255;not null"`
	Content        string     `gorm:"type:text;not null"`
	SentAt         time.Time  `gorm:"index;not null"`
	DeliveredAt    *time.Time
	ReadAt         *time.Time
}
