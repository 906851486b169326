package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ajeu-backend/internal/repo"
)

var relayed = prometheus.NewCounterVec(
	prometheus.CounterOpts{Name: "outbox_relayed_total", Help: "Outbox messages handed to the broker, by result"},
	[]string{"result"},
)

func init() { prometheus.MustRegister(relayed) }

const maxBackoff = 5 * time.Minute

// Relay 轮询 messenger_messages 并投递
type Relay struct {
	DB       *gorm.DB
	Pub      Publisher
	Log      *zap.Logger
	Interval time.Duration
	Batch    int
	Now      func() time.Time
}

func (r *Relay) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Backoff 第 n 次失败后的等待：1s,2s,4s... 封顶 5 分钟
func Backoff(attempts int) time.Duration {
	if attempts <= 0 {
		return time.Second
	}
	if attempts > 9 {
		return maxBackoff
	}
	return min(time.Second<<attempts, maxBackoff)
}

// RelayOnce 投递一批到期消息，返回成功条数
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	batch := r.Batch
	if batch <= 0 {
		batch = 50
	}
	ob := repo.NewOutboxRepo(r.DB)
	due, err := ob.FetchDue(ctx, r.now(), batch)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, m := range due {
		headers := map[string]string{}
		_ = json.Unmarshal([]byte(m.Headers), &headers)

		if err := r.Pub.Publish(ctx, m.QueueName, []byte(m.Body), headers); err != nil {
			relayed.WithLabelValues("failed").Inc()
			attempts := m.Attempts + 1
			next := r.now().Add(Backoff(attempts))
			r.Log.Warn("outbox publish failed",
				zap.Uint64("id", m.ID),
				zap.String("queue", m.QueueName),
				zap.Int("attempts", attempts),
				zap.Time("retry_at", next),
				zap.Error(err),
			)
			if err := ob.Reschedule(ctx, m.ID, attempts, next); err != nil {
				return sent, err
			}
			continue
		}
		if err := ob.MarkDelivered(ctx, m.ID, r.now()); err != nil {
			return sent, err
		}
		relayed.WithLabelValues("ok").Inc()
		sent++
	}
	return sent, nil
}

// Run 阻塞直到 ctx 结束
func (r *Relay) Run(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	r.Log.Info("outbox relay started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			r.Log.Info("outbox relay stopped")
			return
		case <-t.C:
			if n, err := r.RelayOnce(ctx); err != nil {
				if ctx.Err() == nil {
					r.Log.Error("outbox relay", zap.Error(err))
				}
			} else if n > 0 {
				r.Log.Debug("outbox relayed", zap.Int("count", n))
			}
		}
	}
}
