package domain

import "time"

// RefreshToken 服务端保存的长效刷新令牌
type RefreshToken struct {
	ID       uint      `gorm:"primaryKey"`
	Token    string    `gorm:"column:refresh_token;size:128;uniqueIndex;not null"`
	Username string    `gorm:"size:255;index;not null"`
	Valid    time.Time `gorm:"not null"`
}

func (RefreshToken) TableName() string { return "refresh_tokens" }

func (t *RefreshToken) Expired(now time.Time) bool { return !now.Before(t.Valid) }
