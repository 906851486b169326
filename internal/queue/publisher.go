package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher 投递一条消息；headers 为 outbox 记录里的 JSON 头
type Publisher interface {
	Publish(ctx context.Context, queueName string, body []byte, headers map[string]string) error
}

// AMQPPublisher 默认 exchange，routing key = 队列名；连接断开后下次 Publish 时重连
type AMQPPublisher struct {
	URL string

	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	declared map[string]bool
}

func NewAMQPPublisher(url string) *AMQPPublisher {
	return &AMQPPublisher{URL: url, declared: map[string]bool{}}
}

func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.closeLocked()
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	p.conn, p.ch = conn, ch
	p.declared = map[string]bool{}
	return ch, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, queueName string, body []byte, headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	if !p.declared[queueName] {
		// durable：broker 重启后消息仍在
		if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
			p.closeLocked()
			return fmt.Errorf("rabbitmq queue declare: %w", err)
		}
		p.declared[queueName] = true
	}

	tbl := amqp.Table{}
	for k, v := range headers {
		tbl[k] = v
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    headers["id"],
		Type:         headers["type"],
		Headers:      tbl,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		p.closeLocked()
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

func (p *AMQPPublisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	return nil
}
