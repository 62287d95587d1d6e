// Package amqp publishes and consumes the service's domain events over
// RabbitMQ. Publishing is an async side channel: the document store is
// the source of truth and callers treat publish failures as non-fatal.
package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Routing keys double as queue names on the direct exchange.
const (
	RouteLabelsFinalized     = "labels.finalized"
	RouteLedgerEntryRecorded = "ledger.entry.recorded"
)

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
}

// NewClient dials the broker and declares the exchange plus one durable
// queue per routing key.
func NewClient(url, exchangeName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queues: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, route := range []string{RouteLabelsFinalized, RouteLedgerEntryRecorded} {
		_, err = c.channel.QueueDeclare(
			route, // name
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", route, err)
		}

		if err := c.channel.QueueBind(route, route, c.exchangeName, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", route, err)
		}
	}

	return nil
}

func (c *Client) publish(ctx context.Context, route string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := c.channel.PublishWithContext(
		ctx,
		c.exchangeName,
		route,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", route, err)
	}
	return nil
}

// PublishLabelsFinalized emits a labels.finalized event. Safe to call
// on a nil client: a service wired without a broker simply skips the
// event.
func (c *Client) PublishLabelsFinalized(ctx context.Context, msg *LabelsFinalizedMessage) error {
	if c == nil {
		return nil
	}
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, RouteLabelsFinalized, body); err != nil {
		return err
	}
	slog.InfoContext(ctx, "published labels finalized event",
		"user_id", msg.UserID, "count", msg.Count, "exchange", c.exchangeName)
	return nil
}

// PublishLedgerEntryRecorded emits a ledger.entry.recorded event.
// Nil-safe like PublishLabelsFinalized.
func (c *Client) PublishLedgerEntryRecorded(ctx context.Context, msg *LedgerEntryRecordedMessage) error {
	if c == nil {
		return nil
	}
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, RouteLedgerEntryRecorded, body); err != nil {
		return err
	}
	slog.InfoContext(ctx, "published ledger entry recorded event",
		"owner_id", msg.OwnerID, "tx_id", msg.TxID, "exchange", c.exchangeName)
	return nil
}

// ConsumeLabelsFinalized delivers labels.finalized messages to handler
// until the context is cancelled. Messages that fail to decode are
// dropped; handler failures are requeued.
func (c *Client) ConsumeLabelsFinalized(ctx context.Context, handler func(*LabelsFinalizedMessage) error) error {
	msgs, err := c.channel.Consume(
		RouteLabelsFinalized, // queue
		"",                   // consumer
		false,                // auto-ack (we want manual ack)
		false,                // exclusive
		false,                // no-local
		false,                // no-wait
		nil,                  // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "started consuming labels finalized events", "queue", RouteLabelsFinalized)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			msg, err := LabelsFinalizedMessageFromJSON(delivery.Body)
			if err != nil {
				slog.ErrorContext(ctx, "failed to unmarshal message", "error", err)
				delivery.Nack(false, false) // reject and don't requeue
				continue
			}

			if err := handler(msg); err != nil {
				slog.ErrorContext(ctx, "failed to handle message",
					"error", err, "user_id", msg.UserID)
				delivery.Nack(false, true) // reject and requeue
				continue
			}

			delivery.Ack(false)
		}
	}
}

func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
