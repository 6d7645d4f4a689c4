package notify

import "testing"

func TestPublishReachesSubscriber(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe("hmis")
	defer cancel()

	h.Publish("hmis")
	select {
	case <-ch:
	default:
		t.Fatal("expected an event")
	}
}

func TestPublishIsScopedToTarget(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe("hmis")
	defer cancel()

	h.Publish("cmis")
	select {
	case <-ch:
		t.Fatal("event leaked across targets")
	default:
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	h := NewHub()
	_, cancel := h.Subscribe("hmis")
	defer cancel()

	// Nobody drains the channel; repeated publishes must not deadlock.
	for i := 0; i < 10; i++ {
		h.Publish("hmis")
	}
}

func TestCancelClosesChannel(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe("hmis")
	cancel()
	cancel() // idempotent

	if _, open := <-ch; open {
		t.Fatal("expected closed channel after cancel")
	}
	h.Publish("hmis") // must not panic on a removed subscriber
}
