// Package amqp carries report requests and results over RabbitMQ.
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

	"kopilka/internal/log"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	maxBackoff     = 30 * time.Second
	publishTimeout = 5 * time.Second
)

// Config describes the broker topology. Both queues are bound to Exchange
// with their own name as routing key.
type Config struct {
	URL          string
	Exchange     string
	RequestQueue string
	ResultQueue  string
	// Prefetch limits unacknowledged deliveries per consumer; 0 leaves the broker default.
	Prefetch int
	Logger   *log.Logger
}

// Client owns one connection and channel, reconnecting when either drops.
type Client struct {
	url          string
	exchangeName string
	requestQueue string
	resultQueue  string
	prefetch     int
	logger       *log.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	failMu       sync.Mutex
	lastFailure  time.Time
}

// NewClient dials the broker and declares the exchange and both queues.
func NewClient(cfg Config) (*Client, error) {
	c := &Client{
		url:          cfg.URL,
		exchangeName: cfg.Exchange,
		requestQueue: cfg.RequestQueue,
		resultQueue:  cfg.ResultQueue,
		prefetch:     cfg.Prefetch,
		logger:       log.OrDiscard(cfg.Logger).WithComponent(log.ComponentAMQP),
	}

	c.mu.Lock()
	err := c.connectLocked()
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) getLogger() *log.Logger {
	return log.OrDiscard(c.logger)
}

func (c *Client) connectLocked() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if c.prefetch > 0 {
		if err := channel.Qos(c.prefetch, 0, false); err != nil {
			conn.Close()
			return fmt.Errorf("set prefetch: %w", err)
		}
	}

	if err := setup(channel, c.exchangeName, c.requestQueue, c.resultQueue); err != nil {
		conn.Close()
		return fmt.Errorf("setup exchange and queues: %w", err)
	}

	c.conn, c.channel = conn, channel
	return nil
}

func setup(ch *amqp091.Channel, exchange string, queues ...string) error {
	err := ch.ExchangeDeclare(
		exchange, // name
		"direct", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, queue := range queues {
		if queue == "" {
			continue
		}
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", queue, err)
		}
		// routing key is the queue name
		if err := ch.QueueBind(queue, queue, exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", queue, err)
		}
	}
	return nil
}

// getChannel returns the live channel, reconnecting if it was closed.
func (c *Client) getChannel() (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil && !c.channel.IsClosed() {
		return c.channel, nil
	}
	c.closeLocked()
	if err := c.connectLocked(); err != nil {
		return nil, err
	}
	c.getLogger().Info("Reconnected to broker", "exchange", c.exchangeName)
	return c.channel, nil
}

func (c *Client) resetConnection() {
	c.mu.Lock()
	c.closeLocked()
	c.mu.Unlock()
}

// PublishRequest sends req to the request queue.
func (c *Client) PublishRequest(ctx context.Context, req *ReportRequest) error {
	body, err := req.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	if err := c.publish(ctx, c.exchangeName, c.requestQueue, amqp091.Publishing{
		DeliveryMode: amqp091.Persistent,
		MessageId:    req.ID,
		ReplyTo:      req.ReplyTo,
		Body:         body,
	}); err != nil {
		return err
	}
	c.getLogger().InfoContext(ctx, "Published report request",
		log.FieldOperation, log.OpPublish,
		log.FieldRequestID, req.ID,
		log.FieldReport, req.Kind)
	return nil
}

// PublishResult sends res to its reply queue, or to the result queue when the
// request named none.
func (c *Client) PublishResult(ctx context.Context, res *ReportResult) error {
	body, err := res.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	exchange, key, mode := c.resultRoute(res)
	if err := c.publish(ctx, exchange, key, amqp091.Publishing{
		DeliveryMode: mode,
		MessageId:    res.ID,
		Body:         body,
	}); err != nil {
		return err
	}
	c.getLogger().DebugContext(ctx, "Published report result",
		log.FieldOperation, log.OpPublish,
		log.FieldRequestID, res.ID,
		log.FieldSuccess, res.OK)
	return nil
}

// resultRoute picks the exchange, routing key and delivery mode for res.
// Replies go through the default exchange, which routes by queue name.
func (c *Client) resultRoute(res *ReportResult) (string, string, uint8) {
	if res.ReplyTo != "" {
		return "", res.ReplyTo, amqp091.Transient
	}
	return c.exchangeName, c.resultQueue, amqp091.Persistent
}

// publish sends msg, filling in the content type, correlation id and timestamp.
func (c *Client) publish(ctx context.Context, exchange, routingKey string, msg amqp091.Publishing) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("publish to %s: circuit breaker is open", routingKey)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ch, err := c.getChannel()
	if err != nil {
		c.recordFailure()
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	msg.ContentType = "application/json"
	msg.CorrelationId = msg.MessageId
	msg.Timestamp = time.Now()
	err = ch.PublishWithContext(
		ctx,
		exchange,   // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		msg,
	)
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.resetConnection()
		}
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()
	return nil
}

// ConsumeRequests blocks delivering report requests to handler until ctx is done.
// Undecodable bodies are dropped; a handler error requeues the delivery.
func (c *Client) ConsumeRequests(ctx context.Context, handler func(context.Context, *ReportRequest) error) error {
	return c.consume(ctx, c.requestQueue, func(d amqp091.Delivery) {
		handleRequestDelivery(ctx, c.getLogger(), d, handler)
	})
}

// ConsumeResults blocks delivering report results to handler until ctx is done.
func (c *Client) ConsumeResults(ctx context.Context, handler func(context.Context, *ReportResult) error) error {
	return c.consume(ctx, c.resultQueue, func(d amqp091.Delivery) {
		handleResultDelivery(ctx, c.getLogger(), d, handler)
	})
}

func handleRequestDelivery(ctx context.Context, logger *log.Logger, d amqp091.Delivery, handler func(context.Context, *ReportRequest) error) {
	msg, err := ReportRequestFromJSON(d.Body)
	if err != nil {
		logger.ErrorContext(ctx, "Dropping undecodable request", log.FieldError, err)
		_ = d.Nack(false, false)
		return
	}
	msg.ReplyTo = d.ReplyTo
	if err := handler(ctx, msg); err != nil {
		logger.ErrorContext(ctx, "Failed to handle request, requeueing",
			log.FieldRequestID, msg.ID,
			log.FieldReport, msg.Kind,
			log.FieldError, err)
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

func handleResultDelivery(ctx context.Context, logger *log.Logger, d amqp091.Delivery, handler func(context.Context, *ReportResult) error) {
	msg, err := ReportResultFromJSON(d.Body)
	if err != nil {
		logger.ErrorContext(ctx, "Dropping undecodable result", log.FieldError, err)
		_ = d.Nack(false, false)
		return
	}
	if err := handler(ctx, msg); err != nil {
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

// DeclareReplyQueue declares a server-named, exclusive, auto-delete queue for
// the results of this client's own requests. It lives as long as the connection.
func (c *Client) DeclareReplyQueue() (string, error) {
	ch, err := c.getChannel()
	if err != nil {
		return "", err
	}
	q, err := ch.QueueDeclare(
		"",    // name: assigned by the broker
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return "", fmt.Errorf("declare reply queue: %w", err)
	}
	return q.Name, nil
}

// AwaitResult waits on the reply queue for the result of request id.
// Stray results are acknowledged and dropped.
func (c *Client) AwaitResult(ctx context.Context, queue, id string) (*ReportResult, error) {
	ch, err := c.getChannel()
	if err != nil {
		return nil, err
	}
	deliveries, err := ch.Consume(
		queue, // queue
		"",    // consumer
		false, // auto-ack
		true,  // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return nil, fmt.Errorf("consume reply queue: %w", err)
	}
	return awaitResult(ctx, c.getLogger(), deliveries, id)
}

func awaitResult(ctx context.Context, logger *log.Logger, deliveries <-chan amqp091.Delivery, id string) (*ReportResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var found *ReportResult
	closed := drain(ctx, deliveries, func(d amqp091.Delivery) {
		handleResultDelivery(ctx, logger, d, func(_ context.Context, res *ReportResult) error {
			if res.ID != id {
				logger.WarnContext(ctx, "Dropping stray result", log.FieldRequestID, res.ID)
				return nil
			}
			found = res
			cancel()
			return nil
		})
	})
	if found != nil {
		return found, nil
	}
	if closed {
		return nil, fmt.Errorf("reply queue closed before result %s arrived", id)
	}
	return nil, ctx.Err()
}

func (c *Client) consume(ctx context.Context, queue string, handle func(amqp091.Delivery)) error {
	for attempt := 0; ; {
		deliveries, err := c.startConsuming(queue)
		if err != nil {
			wait := exponentialBackoff(attempt)
			attempt++
			c.getLogger().WarnContext(ctx, "Cannot consume, retrying",
				log.FieldOperation, log.OpConsume,
				"queue", queue,
				"retry_in", wait.String(),
				log.FieldError, err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}

		attempt = 0
		c.getLogger().InfoContext(ctx, "Consuming", log.FieldOperation, log.OpConsume, "queue", queue)
		if !drain(ctx, deliveries, handle) {
			c.getLogger().InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		}
		c.getLogger().WarnContext(ctx, "Delivery channel closed, reconnecting", "queue", queue)
		c.resetConnection()
	}
}

func (c *Client) startConsuming(queue string) (<-chan amqp091.Delivery, error) {
	ch, err := c.getChannel()
	if err != nil {
		return nil, err
	}
	deliveries, err := ch.Consume(
		queue, // queue
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return nil, fmt.Errorf("start consuming %s: %w", queue, err)
	}
	return deliveries, nil
}

// drain returns true when the delivery channel closed and false when ctx ended.
func drain(ctx context.Context, deliveries <-chan amqp091.Delivery, handle func(amqp091.Delivery)) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case d, ok := <-deliveries:
			if !ok {
				return true
			}
			handle(d)
		}
	}
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.failMu.Lock()
	last := c.lastFailure
	c.failMu.Unlock()
	if time.Since(last) > openTimeout {
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
	c.failMu.Lock()
	c.lastFailure = time.Now()
	c.failMu.Unlock()
	if n >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

// exponentialBackoff doubles from one second, capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
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

func (c *Client) closeLocked() {
	if c.channel != nil {
		_ = c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// Close releases the channel and connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}
