package notify

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cropCircle/internal/model"
)

func TestStampKeepsExistingValues(t *testing.T) {
	at := time.Unix(1700000000, 0).UTC()
	n := Stamp(model.Notification{ID: "fixed", At: at}, time.Now())
	if n.ID != "fixed" || !n.At.Equal(at) {
		t.Fatalf("stamp overwrote values: %+v", n)
	}

	fresh := Stamp(model.Notification{}, at)
	if fresh.ID == "" || !fresh.At.Equal(at) {
		t.Fatalf("stamp did not fill values: %+v", fresh)
	}
}

func TestMultiJoinsErrors(t *testing.T) {
	calls := 0
	ok := Func(func(context.Context, model.Notification) error { calls++; return nil })
	boom := errors.New("boom")
	bad := Func(func(context.Context, model.Notification) error { calls++; return boom })

	err := Multi{ok, nil, bad, ok}.Publish(context.Background(), model.Notification{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined boom, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected every notifier to be called, got %d", calls)
	}
}

func TestHubFiltersAndDrops(t *testing.T) {
	hub := NewHub()
	all := hub.Subscribe("")
	one := hub.Subscribe("0xa")
	ctx := context.Background()

	_ = hub.Publish(ctx, model.Notification{Kind: model.KindVoteCast, EventID: "0xa"})
	_ = hub.Publish(ctx, model.Notification{Kind: model.KindVoteCast, EventID: "0xb"})

	if got := len(all.C()); got != 2 {
		t.Fatalf("unfiltered subscriber expected 2, got %d", got)
	}
	if got := len(one.C()); got != 1 {
		t.Fatalf("filtered subscriber expected 1, got %d", got)
	}

	for i := 0; i < subscriberBuffer*2; i++ {
		_ = hub.Publish(ctx, model.Notification{EventID: "0xa"})
	}
	if got := len(one.C()); got != subscriberBuffer {
		t.Fatalf("full subscriber should drop, buffered %d", got)
	}

	hub.Unsubscribe(one)
	hub.Unsubscribe(one)
	if _, open := <-drain(one.C()); open {
		t.Fatalf("channel should be closed after unsubscribe")
	}
	if hub.Len() != 1 {
		t.Fatalf("expected 1 live subscription, got %d", hub.Len())
	}
}

func drain(ch <-chan model.Notification) <-chan model.Notification {
	for range ch {
	}
	return ch
}

func TestJournalAppendsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "journal.jsonl")
	j := NewJournal(path)
	ctx := context.Background()

	if err := j.Publish(ctx, model.Notification{ID: "1", Kind: model.KindEventCreated, EventID: "0xa"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := j.Publish(ctx, model.Notification{ID: "2", Kind: model.KindEventEnded, EventID: "0xa"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()

	var ids []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var n model.Notification
		if err := json.Unmarshal(scanner.Bytes(), &n); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		ids = append(ids, n.ID)
	}
	if len(ids) != 2 || ids[0] != "1" || ids[1] != "2" {
		t.Fatalf("unexpected journal ids: %v", ids)
	}
}

func TestKafkaMessageKeyedByEvent(t *testing.T) {
	msg, err := kafkaMessage(model.Notification{ID: "n1", Kind: model.KindMemeSubmitted, EventID: "0xevent"})
	if err != nil {
		t.Fatalf("message: %v", err)
	}
	if string(msg.Key) != "0xevent" {
		t.Fatalf("key mismatch: %s", msg.Key)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != "meme_submitted" {
		t.Fatalf("kind header mismatch: %+v", msg.Headers)
	}
}

func TestAMQPMessage(t *testing.T) {
	n := model.Notification{ID: "n1", Kind: model.KindTokenIssued, EventID: "0xevent"}
	msg, err := amqpMessage(n)
	if err != nil {
		t.Fatalf("message: %v", err)
	}
	if msg.MessageId != "n1" || msg.Type != "token_issued" || msg.ContentType != "application/json" {
		t.Fatalf("unexpected publishing: %+v", msg)
	}
	if RoutingKey(n) != "cropcircle.token_issued" {
		t.Fatalf("routing key mismatch: %s", RoutingKey(n))
	}
}
