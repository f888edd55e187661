package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestEmitWrapsPayload(t *testing.T) {
	rec := &Recorder{}
	Emit(context.Background(), rec, TopicOrderStatus, OrderStatusChanged{OrderID: 7, From: "pending", To: "preparing", Version: 2})

	msgs := rec.Messages(TopicOrderStatus)
	if len(msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(msgs))
	}
	env := msgs[0].Envelope
	if env.ID == "" || env.Topic != TopicOrderStatus || env.OccurredAt.IsZero() {
		t.Errorf("envelope = %+v", env)
	}
	var got OrderStatusChanged
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatal(err)
	}
	if got.OrderID != 7 || got.To != "preparing" || got.Version != 2 {
		t.Errorf("payload = %+v", got)
	}
}

type failing struct{}

func (failing) Publish(context.Context, string, []byte) error { return errors.New("broker down") }
func (failing) Close() error                                  { return nil }

func TestEmitSwallowsPublishErrors(t *testing.T) {
	// must not panic
	Emit(context.Background(), failing{}, TopicTableStatus, TableStatusChanged{TableID: 1})
	Emit(context.Background(), nil, TopicTableStatus, TableStatusChanged{TableID: 1})
}

func TestRecorderFiltersByTopic(t *testing.T) {
	rec := &Recorder{}
	ctx := context.Background()
	Emit(ctx, rec, TopicOrderStatus, OrderStatusChanged{OrderID: 1})
	Emit(ctx, rec, TopicProductUpdated, ProductUpdated{ProductID: 2})
	Emit(ctx, rec, TopicOrderStatus, OrderStatusChanged{OrderID: 3})

	if n := len(rec.Messages("")); n != 3 {
		t.Errorf("all messages = %d", n)
	}
	if n := len(rec.Messages(TopicOrderStatus)); n != 2 {
		t.Errorf("order messages = %d", n)
	}
}

func TestConnectWithoutURLIsNoop(t *testing.T) {
	p, err := Connect("")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.(Noop); !ok {
		t.Errorf("Connect(\"\") = %T, want Noop", p)
	}
}
