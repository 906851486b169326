package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"ajeu-backend/internal/domain"
)

type OutboxRepo struct{ db *gorm.DB }

func NewOutboxRepo(db *gorm.DB) *OutboxRepo { return &OutboxRepo{db: db} }

func (r *OutboxRepo) Enqueue(ctx context.Context, m *domain.OutboxMessage) error {
	now := time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.AvailableAt.IsZero() {
		m.AvailableAt = now
	}
	return r.db.WithContext(ctx).Create(m).Error
}

// FetchDue 尚未投递且已到可用时间的消息，按 id 顺序
func (r *OutboxRepo) FetchDue(ctx context.Context, now time.Time, limit int) ([]domain.OutboxMessage, error) {
	var ms []domain.OutboxMessage
	err := r.db.WithContext(ctx).
		Where("delivered_at IS NULL AND available_at <= ?", now).
		Order("id ASC").
		Limit(limit).
		Find(&ms).Error
	return ms, err
}

func (r *OutboxRepo) MarkDelivered(ctx context.Context, id uint64, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.OutboxMessage{}).
		Where("id = ?", id).
		Update("delivered_at", at).Error
}

func (r *OutboxRepo) Reschedule(ctx context.Context, id uint64, attempts int, availableAt time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.OutboxMessage{}).
		Where("id = ?", id).
		Updates(map[string]any{"attempts": attempts, "available_at": availableAt}).Error
}

func (r *OutboxRepo) Pending(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.OutboxMessage{}).Where("delivered_at IS NULL").Count(&n).Error
	return n, err
}
