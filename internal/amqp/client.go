// Package amqp publishes ledger events to RabbitMQ and consumes them for
// downstream mirrors.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures          = 5
	openTimeout          = 30 * time.Second
	maxBackoff           = 30 * time.Second
	maxReconnectAttempts = 5
	publishTimeout       = 5 * time.Second
	prefetchCount        = 10
)

type Client struct {
	url          string
	exchangeName string
	queueName    string
	logger       *log.Logger

	// open dials the broker and declares the topology; nil means dial.
	open func() (*amqp091.Connection, *amqp091.Channel, error)

	// reconnectMu lets one caller at a time replace a broken connection.
	reconnectMu sync.Mutex

	mu         sync.Mutex
	conn       *amqp091.Connection
	channel    *amqp091.Channel
	generation uint64

	state        int32
	failureCount int64
	cbMu         sync.Mutex
	lastFailure  time.Time
}

// NewClient dials the broker and declares a durable direct exchange with
// one queue bound on the queue name.
func NewClient(url, exchangeName, queueName string, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Discard()
	}
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger.WithComponent(log.ComponentAMQP),
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) log() *log.Logger {
	if c.logger == nil {
		return log.Discard()
	}
	return c.logger
}

func (c *Client) connect() error {
	open := c.open
	if open == nil {
		open = c.dial
	}
	conn, ch, err := open()
	if err != nil {
		return err
	}

	c.mu.Lock()
	oldConn, oldCh := c.conn, c.channel
	c.conn, c.channel = conn, ch
	c.generation++
	c.mu.Unlock()

	closeConnection(oldConn, oldCh)
	return nil
}

func (c *Client) dial() (*amqp091.Connection, *amqp091.Channel, error) {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial AMQP: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	if err := setup(ch, c.exchangeName, c.queueName); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return conn, ch, nil
}

func closeConnection(conn *amqp091.Connection, ch *amqp091.Channel) {
	if ch != nil {
		ch.Close()
	}
	if conn != nil {
		conn.Close()
	}
}

func setup(ch *amqp091.Channel, exchange, queue string) error {
	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(queue, queue, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// ensureConnection reopens a dropped connection, backing off between attempts.
func (c *Client) ensureConnection(ctx context.Context) (*amqp091.Channel, error) {
	c.mu.Lock()
	ch, conn, seen := c.channel, c.conn, c.generation
	c.mu.Unlock()
	if ch != nil && !ch.IsClosed() && conn != nil && !conn.IsClosed() {
		return ch, nil
	}

	c.reconnectMu.Lock()
	defer c.reconnectMu.Unlock()

	// Another caller reconnected while this one waited.
	c.mu.Lock()
	if c.generation != seen {
		ch = c.channel
		c.mu.Unlock()
		return ch, nil
	}
	c.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < maxReconnectAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(exponentialBackoff(attempt - 1)):
			}
		}
		if lastErr = c.connect(); lastErr == nil {
			c.log().InfoContext(ctx, "Reconnected to AMQP broker", "attempt", attempt+1)
			c.mu.Lock()
			ch = c.channel
			c.mu.Unlock()
			return ch, nil
		}
		c.log().WarnContext(ctx, "AMQP reconnect failed", "attempt", attempt+1, log.FieldError, lastErr.Error())
	}
	return nil, fmt.Errorf("reconnect after %d attempts: %w", maxReconnectAttempts, lastErr)
}

func (c *Client) dropConnection() {
	c.mu.Lock()
	conn, ch := c.conn, c.channel
	c.conn, c.channel = nil, nil
	c.mu.Unlock()
	closeConnection(conn, ch)
}

// PublishLedgerEvent sends ev as a persistent JSON message. It fails fast
// while the circuit breaker is open.
func (c *Client) PublishLedgerEvent(ctx context.Context, ev core.LedgerEvent) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("circuit breaker is open, refusing to publish %s", ev.Kind)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := NewEventMessage(ev)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ch, err := c.ensureConnection(ctx)
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("connect: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(ctx, c.exchangeName, c.queueName, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    msg.MessageID,
		Type:         string(msg.Kind),
		Timestamp:    msg.Timestamp,
		Body:         body,
	})
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.dropConnection()
		}
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()

	c.log().DebugContext(ctx, "Published ledger event",
		log.FieldEventKind, string(msg.Kind),
		log.FieldTransactionID, msg.Transaction.ID,
		"message_id", msg.MessageID)
	return nil
}

// ConsumeLedgerEvents delivers events to handler until ctx ends. Handler
// errors requeue the message; undecodable messages are dropped. A lost
// connection is re-established and consumption resumes.
func (c *Client) ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, core.LedgerEvent) error) error {
	for attempt := 0; ; {
		ch, err := c.ensureConnection(ctx)
		if err != nil {
			return err
		}
		if err := ch.Qos(prefetchCount, 0, false); err != nil {
			return fmt.Errorf("set qos: %w", err)
		}
		deliveries, err := ch.Consume(c.queueName, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("start consuming: %w", err)
		}
		c.log().InfoContext(ctx, "Consuming ledger events", "queue", c.queueName)

		err = c.drain(ctx, deliveries, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log().WarnContext(ctx, "Delivery channel closed, reconnecting", log.FieldError, err.Error())
		c.dropConnection()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(exponentialBackoff(attempt)):
		}
		attempt++
	}
}

func (c *Client) drain(ctx context.Context, deliveries <-chan amqp091.Delivery, handler func(context.Context, core.LedgerEvent) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			c.handleDelivery(ctx, d, handler)
		}
	}
}

// acknowledger is the part of amqp091.Delivery handleDelivery needs.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func (c *Client) handleDelivery(ctx context.Context, d amqp091.Delivery, handler func(context.Context, core.LedgerEvent) error) {
	c.process(ctx, d.Body, &d, handler)
}

func (c *Client) process(ctx context.Context, body []byte, ack acknowledger, handler func(context.Context, core.LedgerEvent) error) {
	msg, err := EventMessageFromJSON(body)
	if err != nil {
		c.log().ErrorContext(ctx, "Dropping undecodable message", log.FieldError, err.Error())
		_ = ack.Nack(false, false)
		return
	}

	fields := log.NewFields()
	fields[log.FieldEventKind] = string(msg.Kind)
	fields[log.FieldTransactionID] = msg.Transaction.ID
	fields["message_id"] = msg.MessageID

	if err := handler(ctx, msg.Event()); err != nil {
		c.log().ErrorContext(ctx, "Failed to handle ledger event", fields.WithError(err).ToSlice()...)
		_ = ack.Nack(false, true)
		return
	}
	_ = ack.Ack(false)
	c.log().DebugContext(ctx, "Handled ledger event", fields.ToSlice()...)
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.cbMu.Lock()
	since := time.Since(c.lastFailure)
	c.cbMu.Unlock()
	if since > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	n := atomic.AddInt64(&c.failureCount, 1)
	c.cbMu.Lock()
	c.lastFailure = time.Now()
	c.cbMu.Unlock()
	// A failed probe while half-open reopens immediately.
	if n >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

// exponentialBackoff returns 1s, 2s, 4s... capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "closed"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
