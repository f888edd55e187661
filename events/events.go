// Package events publishes lifecycle notifications for orders, tables and products.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	TopicOrderStatus    = "pos.orders.status"
	TopicOrderItem      = "pos.orders.item"
	TopicOrderPaid      = "pos.orders.paid"
	TopicTableStatus    = "pos.tables.status"
	TopicProductUpdated = "pos.products.updated"
)

type Publisher interface {
	Publish(ctx context.Context, topic string, msg []byte) error
	Close() error
}

// Envelope wraps every payload sent on the bus.
type Envelope struct {
	ID         string          `json:"id"`
	Topic      string          `json:"topic"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

type OrderStatusChanged struct {
	OrderID   uint   `json:"order_id"`
	TableID   uint   `json:"table_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Actor     string `json:"actor"`
	ChangedBy uint   `json:"changed_by,omitempty"`
	Version   int    `json:"version"`
}

type OrderItemChanged struct {
	OrderID uint   `json:"order_id"`
	ItemID  uint   `json:"item_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

type OrderPaid struct {
	OrderID   uint   `json:"order_id"`
	PaymentID uint   `json:"payment_id"`
	Reference string `json:"reference"`
	Total     string `json:"total"`
}

type TableStatusChanged struct {
	TableID uint   `json:"table_id"`
	Number  int    `json:"number"`
	From    string `json:"from"`
	To      string `json:"to"`
}

type ProductUpdated struct {
	ProductID uint `json:"product_id"`
	Available bool `json:"available"`
}

// Emit marshals data into an Envelope and publishes it. Failures are logged
// and swallowed: a lost notification must never fail the request that caused it.
func Emit(ctx context.Context, p Publisher, topic string, data interface{}) {
	if p == nil {
		return
	}
	raw, err := json.Marshal(data)
	if err != nil {
		zap.L().Error("event marshal failed", zap.String("topic", topic), zap.Error(err))
		return
	}
	env, err := json.Marshal(Envelope{
		ID:         uuid.NewString(),
		Topic:      topic,
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	})
	if err != nil {
		zap.L().Error("event marshal failed", zap.String("topic", topic), zap.Error(err))
		return
	}
	if err := p.Publish(ctx, topic, env); err != nil {
		zap.L().Warn("event publish failed", zap.String("topic", topic), zap.Error(err))
	}
}

type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("restaurant-pos-api"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				zap.L().Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			zap.L().Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to NATS")
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.conn.Publish(topic, msg)
}

func (p *NATSPublisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return err
	}
	return nil
}

// Noop drops every message. Used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, string, []byte) error { return nil }
func (Noop) Close() error                                  { return nil }

// Message is one publication captured by a Recorder.
type Message struct {
	Topic    string
	Envelope Envelope
}

// Recorder keeps published messages in memory.
type Recorder struct {
	mu   sync.Mutex
	msgs []Message
}

func (r *Recorder) Publish(_ context.Context, topic string, msg []byte) error {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return errors.Wrap(err, "recorder: decode envelope")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, Message{Topic: topic, Envelope: env})
	return nil
}

func (r *Recorder) Close() error { return nil }

// Messages returns a copy of what was published, optionally only for one topic.
func (r *Recorder) Messages(topic string) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Message
	for _, m := range r.msgs {
		if topic == "" || m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

// Connect returns a NATS publisher for url, or Noop when url is empty.
func Connect(url string) (Publisher, error) {
	if url == "" {
		zap.L().Info("NATS_URL not set, events disabled")
		return Noop{}, nil
	}
	p, err := NewNATSPublisher(url)
	if err != nil {
		return nil, err
	}
	zap.L().Info("Connected to NATS", zap.String("url", url))
	return p, nil
}
