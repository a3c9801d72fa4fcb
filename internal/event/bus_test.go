package event

import (
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yiblet/clipd/internal/clip"
	"github.com/yiblet/clipd/internal/logger"
)

func TestBus_Publish(t *testing.T) {
	bus := NewBus(nil)

	var received Event
	bus.Subscribe(TypeItemAdded, func(e Event) {
		received = e
	})

	bus.Publish(NewItemAdded(clip.Item{ID: 7, Preview: "hello"}))

	added, ok := received.(ItemAdded)
	if !ok {
		t.Fatalf("expected ItemAdded, got %T", received)
	}
	if added.Item.ID != 7 {
		t.Errorf("expected item 7, got %d", added.Item.ID)
	}
	if added.Timestamp().IsZero() {
		t.Error("event timestamp not set")
	}
}

func TestBus_NoMatchingHandlers(t *testing.T) {
	bus := NewBus(nil)
	bus.Subscribe(TypeItemRemoved, func(e Event) {
		t.Error("handler called for a different event type")
	})
	bus.Publish(NewHistoryCleared(3))
}

func TestBus_OrderSpecificThenWildcard(t *testing.T) {
	bus := NewBus(nil)

	var order []string
	bus.SubscribeAll(func(e Event) { order = append(order, "all") })
	bus.Subscribe(TypeItemUpdated, func(e Event) { order = append(order, "first") })
	bus.Subscribe(TypeItemUpdated, func(e Event) { order = append(order, "second") })

	bus.Publish(NewItemUpdated(clip.Item{ID: 1}))

	want := []string{"first", "second", "all"}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("position %d: got %s, want %s", i, order[i], want[i])
		}
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(nil)

	calls := 0
	id := bus.Subscribe(TypeItemRemoved, func(e Event) { calls++ })
	keep := bus.Subscribe(TypeItemRemoved, func(e Event) {})

	if !bus.Unsubscribe(id) {
		t.Fatal("Unsubscribe returned false for a live subscription")
	}
	if bus.Unsubscribe(id) {
		t.Error("Unsubscribe returned true twice")
	}
	if bus.SubscriptionCount() != 1 {
		t.Errorf("expected 1 subscription, got %d", bus.SubscriptionCount())
	}

	bus.Publish(NewItemRemoved(1, false))
	if calls != 0 {
		t.Error("unsubscribed handler was called")
	}
	if !bus.Unsubscribe(keep) {
		t.Error("remaining subscription should still be removable")
	}
}

func TestBus_PanicIsRecovered(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	bus := NewBus(logger.FromZap(zap.New(core)))

	reached := false
	bus.Subscribe(TypeHistoryCleared, func(e Event) { panic("boom") })
	bus.Subscribe(TypeHistoryCleared, func(e Event) { reached = true })

	bus.Publish(NewHistoryCleared(0))

	if !reached {
		t.Error("handler after a panicking one was not called")
	}
	if logs.Len() != 1 {
		t.Errorf("expected the panic to be logged once, got %d entries", logs.Len())
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus(nil)

	var mu sync.Mutex
	count := 0
	bus.SubscribeAll(func(e Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			bus.Publish(NewItemRemoved(id, true))
		}(int64(i))
	}
	wg.Wait()

	if count != 50 {
		t.Errorf("expected 50 deliveries, got %d", count)
	}
}
