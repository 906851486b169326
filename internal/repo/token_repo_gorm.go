package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"ajeu-backend/internal/domain"
)

type TokenRepo struct{ db *gorm.DB }

func NewTokenRepo(db *gorm.DB) *TokenRepo { return &TokenRepo{db: db} }

func (r *TokenRepo) Create(ctx context.Context, t *domain.RefreshToken) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *TokenRepo) Find(ctx context.Context, token string) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	err := r.db.WithContext(ctx).Where("refresh_token = ?", token).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &t, err
}

// DeleteOwned 只删除属于 username 的令牌
func (r *TokenRepo) DeleteOwned(ctx context.Context, token, username string) error {
	return r.db.WithContext(ctx).
		Where("refresh_token = ? AND username = ?", token, username).
		Delete(&domain.RefreshToken{}).Error
}

// DeleteExpired 清理过期令牌，返回删除条数
func (r *TokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("valid <= ?", now).Delete(&domain.RefreshToken{})
	return res.RowsAffected, res.Error
}
