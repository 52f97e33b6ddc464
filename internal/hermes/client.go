package hermes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/MikeSquared-Agency/totalrecall/internal/driver"
)

// SubjectProcessed is the NATS subject for finished chunking runs.
const SubjectProcessed = "totalrecall.chunks.processed"

// SubjectRegistered announces a serving instance.
const SubjectRegistered = "totalrecall.agent.registered"

type Client struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.Name("totalrecall"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

// Notify publishes evt on SubjectProcessed. It satisfies driver.Notifier.
func (c *Client) Notify(ctx context.Context, evt driver.ProcessedEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.Publish(SubjectProcessed, evt); err != nil {
		return fmt.Errorf("publish %s: %w", SubjectProcessed, err)
	}
	c.logger.Debug("processed event published", "id", evt.ID, "source", evt.Source)
	return nil
}

// Flush waits until the server has seen everything published so far.
func (c *Client) Flush(ctx context.Context) error {
	return c.conn.FlushWithContext(ctx)
}

func (c *Client) Close() {
	c.conn.Close()
}
