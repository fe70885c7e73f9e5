package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fjod/go_restaurant/internal/domain"
	"github.com/fjod/go_restaurant/internal/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	amqpPublishTimeout = 5 * time.Second
	amqpQueueSize      = 256
)

// AMQPRelay mirrors every event onto a fanout exchange, redialing when the connection drops.
// Events are queued and sent by one goroutine, so Publish never waits on the broker.
type AMQPRelay struct {
	url      string
	exchange string
	log      *zap.Logger

	queue chan domain.Event
	done  chan struct{}
	once  sync.Once
	send  func(ctx context.Context, ev domain.Event) error

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

func newAMQPRelay(url, exchange string, log *zap.Logger) *AMQPRelay {
	r := &AMQPRelay{
		url:      url,
		exchange: exchange,
		log:      log,
		queue:    make(chan domain.Event, amqpQueueSize),
		done:     make(chan struct{}),
	}
	r.send = r.publish
	return r
}

// DialAMQP connects with bounded exponential backoff and declares the exchange.
func DialAMQP(ctx context.Context, url, exchange string, log *zap.Logger) (*AMQPRelay, error) {
	r := newAMQPRelay(url, exchange, log)

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	err := backoff.RetryNotify(r.connect, b, func(err error, wait time.Duration) {
		log.Warn("amqp connect failed, retrying", zap.Duration("wait", wait), zap.Error(err))
	})
	if err != nil {
		return nil, fmt.Errorf("connect to amqp: %w", err)
	}
	go r.run()
	return r, nil
}

func (r *AMQPRelay) connect() error {
	conn, err := amqp.Dial(r.url)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}
	if err := ch.ExchangeDeclare(r.exchange, "fanout", true, false, false, false, nil); err != nil {
		conn.Close()
		return fmt.Errorf("declare exchange %s: %w", r.exchange, err)
	}
	r.conn, r.channel = conn, ch
	return nil
}

// Publish queues ev. A full queue drops the event with a warning.
func (r *AMQPRelay) Publish(ctx context.Context, ev domain.Event) {
	select {
	case r.queue <- ev:
	default:
		logger.Warn(ctx, r.log, "amqp relay queue full, dropping event", zap.String("type", string(ev.Type)))
	}
}

func (r *AMQPRelay) run() {
	defer close(r.done)
	for ev := range r.queue {
		if err := r.send(context.Background(), ev); err != nil {
			r.log.Error("amqp relay publish failed", zap.String("type", string(ev.Type)), zap.Error(err))
		}
	}
}

func (r *AMQPRelay) publish(ctx context.Context, ev domain.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil || r.conn.IsClosed() {
		if err := r.connect(); err != nil {
			return fmt.Errorf("reconnect: %w", err)
		}
	}

	pubCtx, cancel := context.WithTimeout(ctx, amqpPublishTimeout)
	defer cancel()

	return r.channel.PublishWithContext(pubCtx, r.exchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Type:        string(ev.Type),
		Timestamp:   time.Now(),
		Body:        body,
	})
}

// Close flushes queued events and closes the connection.
func (r *AMQPRelay) Close() error {
	r.once.Do(func() { close(r.queue) })
	<-r.done

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}
