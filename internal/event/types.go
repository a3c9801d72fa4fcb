// Package event carries history change notifications from the capture engine
// to observers such as the browser, without either side importing the other.
package event

import (
	"time"

	"github.com/yiblet/clipd/internal/clip"
)

const (
	TypeItemAdded      = "item.added"
	TypeItemRemoved    = "item.removed"
	TypeItemUpdated    = "item.updated"
	TypeHistoryCleared = "history.cleared"

	wildcard = "*"
)

// Event is implemented by every notification.
type Event interface {
	EventType() string
	Timestamp() time.Time
}

type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// ItemAdded is published after a capture is persisted. Item is lazy.
type ItemAdded struct {
	baseEvent
	Item clip.Item
}

func NewItemAdded(item clip.Item) ItemAdded {
	return ItemAdded{baseEvent: newBaseEvent(TypeItemAdded), Item: item}
}

// ItemRemoved is published when an item leaves the history, by user action
// or by the retention sweep.
type ItemRemoved struct {
	baseEvent
	ID    int64
	Swept bool
}

func NewItemRemoved(id int64, swept bool) ItemRemoved {
	return ItemRemoved{baseEvent: newBaseEvent(TypeItemRemoved), ID: id, Swept: swept}
}

// ItemUpdated is published when an item's favorite flag changes.
type ItemUpdated struct {
	baseEvent
	Item clip.Item
}

func NewItemUpdated(item clip.Item) ItemUpdated {
	return ItemUpdated{baseEvent: newBaseEvent(TypeItemUpdated), Item: item}
}

// HistoryCleared is published after ClearAll.
type HistoryCleared struct {
	baseEvent
	Removed int
}

func NewHistoryCleared(removed int) HistoryCleared {
	return HistoryCleared{baseEvent: newBaseEvent(TypeHistoryCleared), Removed: removed}
}
