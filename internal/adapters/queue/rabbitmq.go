package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"techcafe/internal/domain"
)

const smsRoutingKey = "sms"

// RabbitMQ publishes SMS jobs to a durable queue and consumes them for delivery.
type RabbitMQ struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	queue    string
	logger   *slog.Logger
}

var _ domain.TaskQueue = (*RabbitMQ)(nil)

// NewRabbitMQ dials the broker and declares a direct exchange bound to queue.
func NewRabbitMQ(url, exchange, queue string, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}

	q := &RabbitMQ{conn: conn, channel: ch, exchange: exchange, queue: queue, logger: logger}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		q.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		q.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := ch.QueueBind(queue, smsRoutingKey, exchange, false, nil); err != nil {
		q.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		q.Close()
		return nil, fmt.Errorf("failed to set qos: %w", err)
	}

	logger.Info("RabbitMQ initialized", "exchange", exchange, "queue", queue)
	return q, nil
}

func (q *RabbitMQ) Close() {
	if q.channel != nil {
		_ = q.channel.Close()
	}
	if q.conn != nil {
		_ = q.conn.Close()
	}
	q.logger.Info("RabbitMQ connection closed")
}

// Enqueue publishes job as a persistent JSON message.
func (q *RabbitMQ) Enqueue(ctx context.Context, job domain.SMSJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode sms job: %w", err)
	}
	err = q.channel.PublishWithContext(ctx, q.exchange, smsRoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish sms job: %w", err)
	}
	return nil
}

// Consume delivers queued jobs to handle until ctx is cancelled or the channel closes.
// A failed delivery is requeued once; a redelivered failure or a malformed body is dropped.
func (q *RabbitMQ) Consume(ctx context.Context, handle func(context.Context, domain.SMSJob) error) error {
	msgs, err := q.channel.Consume(q.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	q.logger.Info("started consuming", "queue", q.queue)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			q.settle(d, processDelivery(ctx, d.Body, handle), d.Redelivered)
		}
	}
}

type deliveryResult int

const (
	deliveryAck deliveryResult = iota
	deliveryRetry
	deliveryDrop
)

func processDelivery(ctx context.Context, body []byte, handle func(context.Context, domain.SMSJob) error) deliveryResult {
	var job domain.SMSJob
	if err := json.Unmarshal(body, &job); err != nil {
		return deliveryDrop
	}
	if err := handle(ctx, job); err != nil {
		return deliveryRetry
	}
	return deliveryAck
}

func (q *RabbitMQ) settle(d amqp.Delivery, res deliveryResult, redelivered bool) {
	switch {
	case res == deliveryAck:
		_ = d.Ack(false)
	case res == deliveryRetry && !redelivered:
		q.logger.Warn("sms job failed, requeueing", "delivery_tag", d.DeliveryTag)
		_ = d.Nack(false, true)
	default:
		// the body carries OTP codes, so only the template is logged
		q.logger.Error("dropping sms job", "delivery_tag", d.DeliveryTag, "template_id", templateID(d.Body))
		_ = d.Nack(false, false)
	}
}

// templateID reads the template of a job body, or 0 when the body is not a job.
func templateID(body []byte) int {
	var job struct {
		TemplateID int `json:"template_id"`
	}
	if err := json.Unmarshal(body, &job); err != nil {
		return 0
	}
	return job.TemplateID
}
