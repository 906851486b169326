package domain

import "time"

// OutboxMessage 待投递到 broker 的消息，与业务写入同一事务落库
type OutboxMessage struct {
	ID          uint64     `gorm:"primaryKey"`
	Body        string     `gorm:"type:text;not null"`
	Headers     string     `gorm:"type:text;not null"`
	QueueName   string     `gorm:"size:190;index;not null"`
	Attempts    int        `gorm:"not null"`
	CreatedAt   time.Time  `gorm:"not null"`
	AvailableAt time.Time  `gorm:"index;not null"`
	DeliveredAt *time.Time `gorm:"index"`
}

func (OutboxMessage) TableName() string { return "messenger_messages" }
