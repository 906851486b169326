package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ajeu-backend/internal/domain"
)

type ConversationRepo struct{ db *gorm.DB }

func NewConversationRepo(db *gorm.DB) *ConversationRepo { return &ConversationRepo{db: db} }

func (r *ConversationRepo) List(ctx context.Context) ([]domain.Conversation, error) {
	var cs []domain.Conversation
	err := r.db.WithContext(ctx).Order("last_date DESC, id DESC").Find(&cs).Error
	return cs, err
}

func (r *ConversationRepo) FindByID(ctx context.Context, id uint) (*domain.Conversation, error) {
	var c domain.Conversation
	err := r.db.WithContext(ctx).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &c, err
}

func (r *ConversationRepo) Create(ctx context.Context, c *domain.Conversation) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(c).Error
}

func (r *ConversationRepo) Update(ctx context.Context, c *domain.Conversation) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(c).Error
}

// Delete 连同消息一起删除
func (r *ConversationRepo) Delete(ctx context.Context, id uint) (bool, error) {
	db := r.db.WithContext(ctx)
	if err := db.Where("conversation_id = ?", id).Delete(&domain.Message{}).Error; err != nil {
		return false, err
	}
	res := db.Delete(&domain.Conversation{}, id)
	return res.RowsAffected > 0, res.Error
}
