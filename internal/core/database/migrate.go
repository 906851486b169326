package database

import (
	"gorm.io/gorm"

	"ajeu-backend/internal/domain"
)

// Models 参与 AutoMigrate 的全部表（顺序按外键依赖）
func Models() []any {
	return []any{
		&domain.Matricule{},
		&domain.Cotisation{},
		&domain.User{},
		&domain.Conversation{},
		&domain.Message{},
		&domain.RefreshToken{},
		&domain.OutboxMessage{},
	}
}

func Migrate(db *gorm.DB) error { return db.AutoMigrate(Models()...) }
