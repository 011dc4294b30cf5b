package realtime

import (
	"testing"

	"github.com/joonholab/argos/pkg/logger"
)

func TestRegistryAddRemove(t *testing.T) {
	r := NewRegistry()

	if !r.Add(TopicPrice, "005930") {
		t.Error("first Add should report new")
	}
	if r.Add(TopicPrice, "005930") {
		t.Error("duplicate Add should report existing")
	}
	r.Add(TopicPrice, "000660")
	r.Add(TopicBalance, CodeAll)

	if r.Len() != 3 {
		t.Errorf("Len = %d, want 3", r.Len())
	}

	if !r.Remove(TopicPrice, "005930") {
		t.Error("Remove of present entry should report true")
	}
	if r.Remove(TopicPrice, "005930") {
		t.Error("Remove of absent entry should report false")
	}
	if r.Remove(TopicOrderBook, "005930") {
		t.Error("Remove on empty topic should report false")
	}
	if r.Len() != 2 {
		t.Errorf("Len after Remove = %d, want 2", r.Len())
	}
}

func TestRegistrySnapshot(t *testing.T) {
	r := NewRegistry()
	r.Add(TopicPrice, "005930")
	r.Add(TopicPrice, "000660")
	r.Add(TopicExecution, CodeAll)

	snap := r.Snapshot()
	if len(snap[TopicPrice]) != 2 {
		t.Errorf("price topic has %d codes, want 2", len(snap[TopicPrice]))
	}
	if len(snap[TopicExecution]) != 1 || snap[TopicExecution][0] != CodeAll {
		t.Errorf("execution topic = %v, want [ALL]", snap[TopicExecution])
	}

	// Snapshot must be a copy.
	snap[TopicPrice] = nil
	if len(r.Snapshot()[TopicPrice]) != 2 {
		t.Error("mutating the snapshot leaked into the registry")
	}
}

func TestQueueDropsNewestWhenFull(t *testing.T) {
	q := NewQueue(2, logger.NewNop())

	for i := 0; i < 2; i++ {
		if !q.Push(Event{Topic: TopicPrice, Code: "005930"}) {
			t.Fatalf("push %d should succeed", i)
		}
	}
	if q.Push(Event{Topic: TopicPrice, Code: "dropped"}) {
		t.Error("push into a full queue should drop")
	}
	if q.Dropped() != 1 {
		t.Errorf("Dropped = %d, want 1", q.Dropped())
	}

	// Earlier events survive; the dropped one never shows up.
	ev := <-q.Events()
	if ev.Code != "005930" {
		t.Errorf("oldest event = %q, want 005930", ev.Code)
	}
}

func TestQueueDefaultCapacity(t *testing.T) {
	q := NewQueue(0, logger.NewNop())
	if cap(q.ch) != DefaultQueueCapacity {
		t.Errorf("capacity = %d, want %d", cap(q.ch), DefaultQueueCapacity)
	}
}

func TestTickFromEvent(t *testing.T) {
	ev := Event{
		Topic: TopicPrice,
		Code:  "005930",
		Name:  "삼성전자",
		Values: map[string]string{
			"10": "-71000",
			"12": "+1.43",
			"13": "12345678",
		},
	}

	tick, ok := TickFromEvent(ev)
	if !ok {
		t.Fatal("expected a tick")
	}
	if tick.Price != 71000 {
		t.Errorf("price = %d, want 71000 (absolute)", tick.Price)
	}
	if tick.ChangeRate != 1.43 {
		t.Errorf("change rate = %f, want 1.43", tick.ChangeRate)
	}
	if tick.Volume != 12345678 {
		t.Errorf("volume = %d", tick.Volume)
	}
}

func TestTickFromEventWrongTopic(t *testing.T) {
	if _, ok := TickFromEvent(Event{Topic: TopicBalance, Values: map[string]string{"10": "100"}}); ok {
		t.Error("non-price topic should not produce a tick")
	}
}

func TestTickFromEventNoPrice(t *testing.T) {
	if _, ok := TickFromEvent(Event{Topic: TopicPrice, Values: map[string]string{}}); ok {
		t.Error("event without price should not produce a tick")
	}
}
