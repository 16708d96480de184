package eventbus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(4)
	defer unsub()

	b.Publish(Event{Type: TypeRunOK, Task: "demo", Tags: []string{"a"}, Took: time.Second})

	select {
	case ev := <-ch:
		if ev.Type != TypeRunOK || ev.Task != "demo" {
			t.Fatalf("event = %+v", ev)
		}
		if ev.Time.IsZero() {
			t.Fatal("Publish should stamp a zero Time")
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestSlowSubscriberDrops(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(1)
	defer unsub()

	b.Publish(Event{Type: TypeRunOK, Task: "one"})
	b.Publish(Event{Type: TypeRunOK, Task: "two"}) // buffer full; dropped

	ev := <-ch
	if ev.Task != "one" {
		t.Fatalf("got %q, want one", ev.Task)
	}
	select {
	case ev := <-ch:
		t.Fatalf("unexpected second event %+v", ev)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(1)
	unsub()
	unsub() // idempotent

	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after unsubscribe")
	}
	// Publishing after unsubscribe must not panic.
	b.Publish(Event{Type: TypeRunError, Task: "late"})
}
