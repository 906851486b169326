package service

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"ajeu-backend/internal/core/apperr"
	"ajeu-backend/internal/core/database"
	"ajeu-backend/internal/domain"
	"ajeu-backend/internal/queue"
	"ajeu-backend/internal/repo"
)

type ConversationService struct{ db *gorm.DB }

func NewConversationService(db *gorm.DB) *ConversationService { return &ConversationService{db: db} }

func (s *ConversationService) List(ctx context.Context) ([]ConversationView, error) {
	cs, err := repo.NewConversationRepo(s.db).List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ConversationView, 0, len(cs))
	for i := range cs {
		out = append(out, conversationView(&cs[i]))
	}
	return out, nil
}

func findConversation(ctx context.Context, r *repo.ConversationRepo, id uint) (*domain.Conversation, error) {
	c, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NotFound("conversation not found")
	}
	return c, nil
}

func (s *ConversationService) Get(ctx context.Context, id uint) (*ConversationView, error) {
	c, err := findConversation(ctx, repo.NewConversationRepo(s.db), id)
	if err != nil {
		return nil, err
	}
	v := conversationView(c)
	return &v, nil
}

type ConversationInput struct {
	ParticipantsID  []string `json:"participantsId"  binding:"omitempty,dive,notblank"`
	RecipientID     *string  `json:"recipientId"     binding:"omitempty,max=255"`
	NameParticipant string   `json:"nameParticipant" binding:"required,notblank,max=255"`
	NameRecipient   string   `json:"nameRecipient"   binding:"max=255"`
}

func (s *ConversationService) Create(ctx context.Context, in ConversationInput) (*ConversationView, error) {
	c := &domain.Conversation{
		ParticipantsID:  in.ParticipantsID,
		RecipientID:     in.RecipientID,
		NameParticipant: strings.TrimSpace(in.NameParticipant),
		NameRecipient:   strings.TrimSpace(in.NameRecipient),
		LastDate:        time.Now(),
		MessageStatus:   domain.StatusSent,
		NewConversation: true,
	}
	if c.ParticipantsID == nil {
		c.ParticipantsID = []string{}
	}
	if err := repo.NewConversationRepo(s.db).Create(ctx, c); err != nil {
		return nil, err
	}
	v := conversationView(c)
	return &v, nil
}

// ConversationPatch PUT / PATCH 共用：只覆盖出现的字段
type ConversationPatch struct {
	ParticipantsID  []string `json:"participantsId"  binding:"omitempty,dive,notblank"`
	RecipientID     *string  `json:"recipientId"     binding:"omitempty,max=255"`
	NameParticipant *string  `json:"nameParticipant" binding:"omitempty,notblank,max=255"`
	NameRecipient   *string  `json:"nameRecipient"   binding:"omitempty,max=255"`
	Online          *bool    `json:"online"`
}

func (s *ConversationService) Update(ctx context.Context, id uint, in ConversationPatch) (*ConversationView, error) {
	var out ConversationView
	err := database.InTx(ctx, s.db, 1, func(tx *gorm.DB) error {
		r := repo.NewConversationRepo(tx)
		c, err := findConversation(ctx, r, id)
		if err != nil {
			return err
		}
		if in.ParticipantsID != nil {
			c.ParticipantsID = in.ParticipantsID
		}
		if in.RecipientID != nil {
			c.RecipientID = in.RecipientID
		}
		if in.NameParticipant != nil {
			c.NameParticipant = strings.TrimSpace(*in.NameParticipant)
		}
		if in.NameRecipient != nil {
			c.NameRecipient = strings.TrimSpace(*in.NameRecipient)
		}
		if in.Online != nil {
			c.Online = *in.Online
		}
		if err := r.Update(ctx, c); err != nil {
			return err
		}
		out = conversationView(c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type StatusPatch struct {
	Status      *string `json:"status"      binding:"omitempty,oneof=sent delivered read"`
	UnreadCount *int    `json:"unreadCount" binding:"omitempty,gte=0"`
}

func (s *ConversationService) PatchStatus(ctx context.Context, id uint, in StatusPatch) (*ConversationView, error) {
	var out ConversationView
	err := database.InTx(ctx, s.db, 1, func(tx *gorm.DB) error {
		r := repo.NewConversationRepo(tx)
		c, err := findConversation(ctx, r, id)
		if err != nil {
			return err
		}
		if in.Status != nil {
			c.MessageStatus = *in.Status
		}
		if in.UnreadCount != nil {
			c.UnreadCount = *in.UnreadCount
		}
		if err := r.Update(ctx, c); err != nil {
			return err
		}
		out = conversationView(c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *ConversationService) Delete(ctx context.Context, id uint) error {
	return database.InTx(ctx, s.db, 1, func(tx *gorm.DB) error {
		ok, err := repo.NewConversationRepo(tx).Delete(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("conversation not found")
		}
		return nil
	})
}

type MessageService struct{ db *gorm.DB }

func NewMessageService(db *gorm.DB) *MessageService { return &MessageService{db: db} }

func (s *MessageService) List(ctx context.Context, conversationID uint) ([]MessageView, error) {
	if _, err := findConversation(ctx, repo.NewConversationRepo(s.db), conversationID); err != nil {
		return nil, err
	}
	ms, err := repo.NewMessageRepo(s.db).ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	out := make([]MessageView, 0, len(ms))
	for i := range ms {
		out = append(out, messageView(&ms[i]))
	}
	return out, nil
}

type MessageInput struct {
	Content string `json:"content" binding:"required,notblank,max=10000"`
}

// Create 写消息、刷新会话摘要并投递 message.created
func (s *MessageService) Create(ctx context.Context, conversationID uint, senderID string, in MessageInput) (*MessageView, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, apperr.BadRequest(`field "content" is required`)
	}
	var out MessageView
	err := database.InTx(ctx, s.db, 1, func(tx *gorm.DB) error {
		convs := repo.NewConversationRepo(tx)
		c, err := findConversation(ctx, convs, conversationID)
		if err != nil {
			return err
		}
		m := &domain.Message{ConversationID: c.ID, SenderID: senderID, Content: content, SentAt: time.Now()}
		if err := repo.NewMessageRepo(tx).Create(ctx, m); err != nil {
			return err
		}

		c.LastMessage = &content
		c.LastDate = m.SentAt
		c.MessageStatus = domain.StatusSent
		c.UnreadCount++
		c.NewConversation = false
		if err := convs.Update(ctx, c); err != nil {
			return err
		}

		evt, err := queue.NewOutboxMessage(queue.QueueMessages, queue.TypeMessageCreated, queue.MessageCreated{
			ConversationID: c.ID, MessageID: m.ID, SenderID: senderID, Content: content, SentAt: m.SentAt,
		})
		if err != nil {
			return err
		}
		if err := repo.NewOutboxRepo(tx).Enqueue(ctx, evt); err != nil {
			return err
		}
		out = messageView(m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *MessageService) Delete(ctx context.Context, conversationID, id uint) error {
	return database.InTx(ctx, s.db, 1, func(tx *gorm.DB) error {
		msgs := repo.NewMessageRepo(tx)
		m, err := msgs.FindInConversation(ctx, conversationID, id)
		if err != nil {
			return err
		}
		if m == nil {
			return apperr.NotFound("message not found")
		}
		return msgs.Delete(ctx, m.ID)
	})
}
