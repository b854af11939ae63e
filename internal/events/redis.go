package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"vertex-relay/internal/constants"
	"vertex-relay/internal/monitoring"
	"vertex-relay/internal/runtime"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const redisSinkName = "redis"

// ErrPublisherClosed is returned by Enqueue after Close.
var ErrPublisherClosed = errors.New("redis publisher closed")

// RedisOptions configures a RedisPublisher.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	Channel   string
	QueueSize int
}

// RedisPublisher forwards relay outcome events to a Redis pub/sub channel.
// Delivery is best effort: the queue is bounded and a full queue drops events.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	queue   chan []byte

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewRedisPublisher connects to Redis and starts the delivery worker.
func NewRedisPublisher(ctx context.Context, opts RedisOptions) (*RedisPublisher, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	if opts.Channel == "" {
		return nil, errors.New("redis channel is required")
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = constants.DefaultEventQueueSize
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     4,
	})
	pingCtx, cancel := context.WithTimeout(ctx, constants.EventPublishTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	p := &RedisPublisher{
		client:  client,
		channel: opts.Channel,
		queue:   make(chan []byte, opts.QueueSize),
	}
	p.wg.Add(1)
	runtime.SafeGo("redis-event-publisher", p.run)
	return p, nil
}

// Attach subscribes the publisher to outcome events on sub and returns the unsubscribe func.
func (p *RedisPublisher) Attach(sub Subscriber) func() {
	return sub.Subscribe(TopicRelayOutcome, p.handle)
}

func (p *RedisPublisher) handle(_ context.Context, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.WithError(err).WithField("topic", ev.Topic).Warn("failed to encode event")
		monitoring.EventsPublishedTotal.WithLabelValues(redisSinkName, "error").Inc()
		return
	}
	if err := p.Enqueue(data); err != nil && !errors.Is(err, ErrPublisherClosed) {
		log.WithError(err).WithField("topic", ev.Topic).Debug("event dropped")
	}
}

// Enqueue queues one encoded message without blocking.
func (p *RedisPublisher) Enqueue(data []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}
	select {
	case p.queue <- data:
		return nil
	default:
		monitoring.EventsDroppedTotal.WithLabelValues(redisSinkName).Inc()
		return errors.New("event queue full")
	}
}

func (p *RedisPublisher) run() {
	defer p.wg.Done()
	for data := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), constants.EventPublishTimeout)
		err := p.client.Publish(ctx, p.channel, data).Err()
		cancel()
		result := "ok"
		if err != nil {
			result = "error"
			log.WithError(err).WithField("channel", p.channel).Warn("failed to publish event to redis")
		}
		monitoring.EventsPublishedTotal.WithLabelValues(redisSinkName, result).Inc()
	}
}

// Close stops accepting events, drains the queue and closes the connection.
func (p *RedisPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	return p.client.Close()
}
