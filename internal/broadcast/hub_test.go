package broadcast

import "testing"

func TestPublishReachesEverySubscriber(t *testing.T) {
	h := NewHub()
	a, cancelA := h.Subscribe()
	b, cancelB := h.Subscribe()
	defer cancelA()
	defer cancelB()

	h.Publish(Event{Type: EquipmentMoved, EquipmentID: "e1"})

	for _, ch := range []<-chan Event{a, b} {
		ev := <-ch
		if ev.Type != EquipmentMoved || ev.EquipmentID != "e1" {
			t.Fatalf("unexpected event %+v", ev)
		}
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	h := NewHubSize(1)
	ch, cancel := h.Subscribe()
	defer cancel()

	h.Publish(Event{EquipmentID: "first"})
	h.Publish(Event{EquipmentID: "second"}) // buffer full

	if got := (<-ch).EquipmentID; got != "first" {
		t.Fatalf("got %q, want first", got)
	}
	if h.Dropped() != 1 {
		t.Fatalf("dropped = %d, want 1", h.Dropped())
	}
}

func TestUnsubscribeAndClose(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe()
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after unsubscribe")
	}
	if h.Subscribers() != 0 {
		t.Fatalf("subscribers = %d", h.Subscribers())
	}

	ch2, cancel2 := h.Subscribe()
	defer cancel2()
	h.Close()
	if _, ok := <-ch2; ok {
		t.Fatal("channel should be closed by Close")
	}
	h.Publish(Event{Type: EquipmentDeleted}) // no panic after close

	ch3, _ := h.Subscribe()
	if _, ok := <-ch3; ok {
		t.Fatal("subscribe after close returns a closed channel")
	}
}
