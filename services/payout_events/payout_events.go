package payout_events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/joy095/marketplace/logger"
	"github.com/joy095/marketplace/models/payout_models"
	"github.com/redis/go-redis/v9"
)

// Channel is the pub/sub channel payout writes are announced on.
const Channel = "payouts:changes"

const subscriberBuffer = 16

// PayoutChange tells listeners a payout was written. It is an invalidation
// signal only; listeners reload rather than apply it.
type PayoutChange struct {
	PayoutID uuid.UUID            `json:"payout_id"`
	Status   payout_models.Status `json:"status"`
	At       time.Time            `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, change PayoutChange) error
}

// Subscriber delivers changes until ctx is done, then closes the channel.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan PayoutChange, error)
}

type Notifier interface {
	Publisher
	Subscriber
}

// NewNotifier uses Redis pub/sub when a client is configured and an
// in-process fan-out otherwise.
func NewNotifier(rdb *redis.Client) Notifier {
	if rdb == nil {
		logger.WarnLogger.Warn("Redis not configured, payout change events are process-local")
		return NewMemoryNotifier()
	}
	return NewRedisNotifier(rdb)
}

type RedisNotifier struct {
	rdb *redis.Client
}

func NewRedisNotifier(rdb *redis.Client) *RedisNotifier {
	return &RedisNotifier{rdb: rdb}
}

func (n *RedisNotifier) Publish(ctx context.Context, change PayoutChange) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, Channel, payload).Err()
}

func (n *RedisNotifier) Subscribe(ctx context.Context) (<-chan PayoutChange, error) {
	ps := n.rdb.Subscribe(ctx, Channel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, err
	}

	out := make(chan PayoutChange, subscriberBuffer)
	go func() {
		defer close(out)
		defer ps.Close()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var change PayoutChange
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					logger.WarnLogger.Warnf("Dropping malformed payout change: %v", err)
					continue
				}
				select {
				case out <- change:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// MemoryNotifier fans changes out to subscribers in the same process. Slow
// subscribers miss events rather than block publishers.
type MemoryNotifier struct {
	mu   sync.Mutex
	next int
	subs map[int]chan PayoutChange
}

func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{subs: make(map[int]chan PayoutChange)}
}

func (n *MemoryNotifier) Publish(_ context.Context, change PayoutChange) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ch := range n.subs {
		select {
		case ch <- change:
		default:
		}
	}
	return nil
}

func (n *MemoryNotifier) Subscribe(ctx context.Context) (<-chan PayoutChange, error) {
	ch := make(chan PayoutChange, subscriberBuffer)

	n.mu.Lock()
	id := n.next
	n.next++
	n.subs[id] = ch
	n.mu.Unlock()

	go func() {
		<-ctx.Done()
		n.mu.Lock()
		delete(n.subs, id)
		close(ch)
		n.mu.Unlock()
	}()
	return ch, nil
}
