package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"ajeu-backend/internal/domain"
)

type MessageRepo struct{ db *gorm.DB }

func NewMessageRepo(db *gorm.DB) *MessageRepo { return &MessageRepo{db: db} }

// ListByConversation 按发送时间升序
func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID uint) ([]domain.Message, error) {
	var ms []domain.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("sent_at ASC, id ASC").
		Find(&ms).Error
	return ms, err
}

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *MessageRepo) FindInConversation(ctx context.Context, conversationID, id uint) (*domain.Message, error) {
	var m domain.Message
	err := r.db.WithContext(ctx).Where("conversation_id = ? AND id = ?", conversationID, id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &m, err
}

func (r *MessageRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&domain.Message{}, id).Error
}
