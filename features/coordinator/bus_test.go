package coordinator

import (
	"testing"
	"time"

	"provwatch/features/providers"

	"github.com/stretchr/testify/assert"
)

func testSnapshot() Snapshot {
	return Snapshot{
		"openai": {ID: "openai", State: providers.StateReady, Connected: true},
	}
}

func TestBus_PublishReachesAllListeners(t *testing.T) {
	bus := NewBus()

	first := make(chan Snapshot, 1)
	second := make(chan Snapshot, 1)

	bus.Subscribe(func(s Snapshot) { first <- s })
	bus.Subscribe(func(s Snapshot) { second <- s })
	assert.Equal(t, 2, bus.Len())

	bus.Publish(testSnapshot())

	for _, ch := range []chan Snapshot{first, second} {
		select {
		case snapshot := <-ch:
			assert.Equal(t, providers.StateReady, snapshot["openai"].State)
		case <-time.After(time.Second):
			t.Fatal("listener did not receive the published snapshot")
		}
	}
}

func TestBus_UnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus()

	received := make(chan Snapshot, 2)
	unsubscribe := bus.Subscribe(func(s Snapshot) { received <- s })

	bus.Publish(testSnapshot())
	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("listener did not receive the first snapshot")
	}

	unsubscribe()
	assert.Equal(t, 0, bus.Len())

	bus.Publish(testSnapshot())
	select {
	case <-received:
		t.Fatal("unsubscribed listener must not be notified")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_PanickingListenerDoesNotAffectOthers(t *testing.T) {
	bus := NewBus()

	bus.Subscribe(func(Snapshot) { panic("listener bug") })

	received := make(chan Snapshot, 1)
	bus.Subscribe(func(s Snapshot) { received <- s })

	assert.NotPanics(t, func() {
		bus.Publish(testSnapshot())
	})

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("healthy listener was starved by a panicking one")
	}
}

func TestBus_UnsubscribeIsIdempotent(t *testing.T) {
	bus := NewBus()

	unsubscribe := bus.Subscribe(func(Snapshot) {})
	unsubscribe()

	assert.NotPanics(t, unsubscribe)
	assert.Equal(t, 0, bus.Len())
}
