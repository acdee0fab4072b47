package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/IBM/sarama/mocks"

	"seatchart/internal/layout"
)

type recordingSink struct {
	mu     sync.Mutex
	deltas []Delta
}

func (s *recordingSink) ApplyDelta(_ context.Context, d Delta) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deltas = append(s.deltas, d)
	return 1
}

func TestBroadcaster_PublishDeliversToSubscribers(t *testing.T) {
	b := NewBroadcaster[string]()
	ch1 := b.Subscribe()
	ch2 := b.Subscribe()
	defer b.Unsubscribe(ch1)
	defer b.Unsubscribe(ch2)

	b.Publish("snapshot")
	if got := <-ch1; got != "snapshot" {
		t.Errorf("ch1 got %q, want snapshot", got)
	}
	if got := <-ch2; got != "snapshot" {
		t.Errorf("ch2 got %q, want snapshot", got)
	}
	if got := b.Len(); got != 2 {
		t.Errorf("got %d subscribers, want 2", got)
	}
}

func TestBroadcaster_UnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcaster[int]()
	ch := b.Subscribe()
	b.Unsubscribe(ch)
	if _, open := <-ch; open {
		t.Error("channel should be closed after Unsubscribe")
	}
	// Second unsubscribe must not panic on a closed channel.
	b.Unsubscribe(ch)
}

func TestBroadcaster_PublishDropsForLaggards(t *testing.T) {
	b := NewBroadcaster[int]()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for i := 0; i < subscriberBuffer+5; i++ {
		b.Publish(i)
	}
	if got := len(ch); got != subscriberBuffer {
		t.Errorf("got %d buffered events, want %d", got, subscriberBuffer)
	}
}

func TestPriorityBroadcaster_KeepsMarkedEvents(t *testing.T) {
	keep := func(v int) bool { return v < 0 }
	b := NewPriorityBroadcaster(keep)
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for i := 0; i < subscriberBuffer; i++ {
		b.Publish(i)
	}
	b.Publish(-1)
	b.Publish(100)
	b.Publish(-2)

	got := make([]int, 0, subscriberBuffer)
	for len(ch) > 0 {
		got = append(got, <-ch)
	}
	if len(got) != subscriberBuffer {
		t.Fatalf("got %d buffered events, want %d", len(got), subscriberBuffer)
	}
	if got[0] != 2 {
		t.Errorf("got oldest %d, want 2 after two evictions", got[0])
	}
	if a, z := got[len(got)-2], got[len(got)-1]; a != -1 || z != -2 {
		t.Errorf("got tail %d, %d, want -1, -2 in publish order", a, z)
	}
	for _, v := range got {
		if v == 100 {
			t.Error("a droppable event was queued on a full subscriber")
		}
	}
}

func TestPriorityBroadcaster_AllKept(t *testing.T) {
	b := NewPriorityBroadcaster(func(int) bool { return true })
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for i := 0; i < subscriberBuffer+3; i++ {
		b.Publish(i)
	}
	if got := <-ch; got != 3 {
		t.Errorf("got oldest %d, want 3", got)
	}
}

func TestBroadcaster_Close(t *testing.T) {
	b := NewBroadcaster[int]()
	ch := b.Subscribe()
	b.Close()
	if _, open := <-ch; open {
		t.Error("subscriber channel should be closed after Close")
	}
	late := b.Subscribe()
	if _, open := <-late; open {
		t.Error("subscribing after Close should return a closed channel")
	}
	if got := b.Len(); got != 0 {
		t.Errorf("got %d subscribers, want 0", got)
	}
}

func TestDecodeDelta(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantErr    bool
		wantStatus layout.SeatStatus
	}{
		{"valid", `{"layout_id":"l1","seat_id":"A1","status":"hold","held_by":"s2"}`, false, layout.StatusHold},
		{"event only", `{"event_id":"e1","seat_id":"A1","status":"booked"}`, false, layout.StatusBooked},
		{"unknown status", `{"layout_id":"l1","seat_id":"A1","status":"sparkly"}`, false, layout.StatusAvailable},
		{"missing seat", `{"layout_id":"l1","status":"hold"}`, true, ""},
		{"missing scope", `{"seat_id":"A1","status":"hold"}`, true, ""},
		{"malformed", `{"seat_id":`, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := DecodeDelta([]byte(tt.body))
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDelta) {
					t.Errorf("got error %v, want ErrInvalidDelta", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.Status != tt.wantStatus {
				t.Errorf("got status %q, want %q", d.Status, tt.wantStatus)
			}
		})
	}
}

func TestDelta_Key(t *testing.T) {
	d := Delta{EventID: "e1", SeatID: "A7"}
	if got := d.Key(); got != "e1:A7" {
		t.Errorf("got key %q, want e1:A7", got)
	}
}

func TestConsumerGroupHandler_Process(t *testing.T) {
	sink := &recordingSink{}
	h := &consumerGroupHandler{sink: sink}

	h.process(context.Background(), []byte(`{"layout_id":"l1","seat_id":"B3","status":"booked"}`))
	h.process(context.Background(), []byte(`not json`))

	if len(sink.deltas) != 1 {
		t.Fatalf("got %d deltas, want 1", len(sink.deltas))
	}
	if got := sink.deltas[0].SeatID; got != "B3" {
		t.Errorf("got seat %q, want B3", got)
	}
}

func TestKafkaPublisher_Publish(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var d Delta
		if err := json.Unmarshal(val, &d); err != nil {
			return err
		}
		if d.SeatID != "A1" || d.Status != layout.StatusHold {
			return fmt.Errorf("unexpected delta %+v", d)
		}
		if d.At.IsZero() {
			return errors.New("timestamp not stamped")
		}
		return nil
	})

	pub := newKafkaPublisherWithProducer(producer, "seat-status")
	err := pub.Publish(context.Background(), Delta{LayoutID: "l1", EventID: "e1", SeatID: "A1", Status: layout.StatusHold})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}
}

func TestKafkaPublisher_PublishEmpty(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	pub := newKafkaPublisherWithProducer(producer, "seat-status")
	if err := pub.Publish(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	_ = pub.Close()
}
