// Package rabbitmq owns the process-wide broker connection: one channel, one
// direct exchange, and the two queues this service publishes into.
package rabbitmq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/google/uuid"
)

type Config struct {
	URL                 string
	Exchange            string
	NotificationQueue   string
	NotificationRouting string
	LogsQueue           string
	LogsRouting         string
}

type Client struct {
	cfg  Config
	conn *amqp.Connection
	ch   *amqp.Channel
}

// Connect dials the broker, declares the exchange and binds both queues.
// The connection is opened once at process start and closed at shutdown.
func Connect(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("broker url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open broker channel: %w", err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", cfg.Exchange, err)
	}

	for _, q := range []struct {
		name    string
		routing string
	}{
		{cfg.NotificationQueue, cfg.NotificationRouting},
		{cfg.LogsQueue, cfg.LogsRouting},
	} {
		if _, err := ch.QueueDeclare(q.name, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("declare queue %q: %w", q.name, err)
		}
		if err := ch.QueueBind(q.name, q.routing, cfg.Exchange, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("bind queue %q: %w", q.name, err)
		}
	}

	return &Client{cfg: cfg, conn: conn, ch: ch}, nil
}

// PublishNotification sends a JSON payload under the notification routing key.
func (c *Client) PublishNotification(ctx context.Context, body []byte) error {
	return c.publish(ctx, c.cfg.NotificationRouting, "application/json", body)
}

// PublishLog sends a plain-text log line under the logs routing key.
func (c *Client) PublishLog(ctx context.Context, body []byte) error {
	return c.publish(ctx, c.cfg.LogsRouting, "text/plain", body)
}

func (c *Client) publish(ctx context.Context, routingKey, contentType string, body []byte) error {
	if c == nil || c.ch == nil {
		return fmt.Errorf("broker channel is not open")
	}

	err := c.ch.PublishWithContext(ctx, c.cfg.Exchange, routingKey, false, false, amqp.Publishing{
		ContentType: contentType,
		MessageId:   uuid.NewString(),
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("publish to %q: %w", routingKey, err)
	}

	return nil
}

func (c *Client) Close() error {
	if c == nil {
		return nil
	}

	var closeErr error
	if c.ch != nil && !c.ch.IsClosed() {
		closeErr = c.ch.Close()
	}
	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Close(); err != nil && closeErr == nil {
			closeErr = err
		}
	}
	return closeErr
}
