// Package queue 业务事件先落 messenger_messages（与业务写入同事务），再由 Relay 投递到 RabbitMQ。
package queue

import (
	"encoding/json"
	"time"

	"ajeu-backend/internal/domain"
	"ajeu-backend/pkg/utils"
)

const (
	QueueMembers  = "ajeu.members"
	QueueMessages = "ajeu.messages"

	TypeMemberRegistered = "member.registered"
	TypeMessageCreated   = "message.created"
)

type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

type MemberRegistered struct {
	UserID    uint   `json:"userId"`
	Email     string `json:"email"`
	Matricule string `json:"matricule"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type MessageCreated struct {
	ConversationID uint      `json:"conversationId"`
	MessageID      uint      `json:"messageId"`
	SenderID       string    `json:"senderId"`
	Content        string    `json:"content"`
	SentAt         time.Time `json:"sentAt"`
}

// NewOutboxMessage 编码成一行待投递记录
func NewOutboxMessage(queueName, typ string, payload any) (*domain.OutboxMessage, error) {
	now := time.Now()
	evt := Event{ID: utils.NewID(), Type: typ, OccurredAt: now.UTC(), Payload: payload}
	body, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	headers, err := json.Marshal(map[string]string{"type": typ, "id": evt.ID})
	if err != nil {
		return nil, err
	}
	return &domain.OutboxMessage{
		Body:        string(body),
		Headers:     string(headers),
		QueueName:   queueName,
		CreatedAt:   now,
		AvailableAt: now,
	}, nil
}
