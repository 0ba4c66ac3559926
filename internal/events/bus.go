// Package events carries document lifecycle notifications to
// in-process subscribers.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Lifecycle event names.
const (
	DocumentCreated = "document.created"
	VersionCreated  = "version.created"
	VersionReverted = "version.reverted"
)

// Event is one lifecycle notification. Actor is nil for system-driven
// operations such as interval source ingestion.
type Event struct {
	Name     string
	Actor    *uuid.UUID
	TargetID uuid.UUID
	At       time.Time
}

type Handler func(ctx context.Context, event Event)

// Bus dispatches events to subscribers synchronously, in subscription
// order. The order is a visible contract: wire subscribers in the order
// their effects must happen.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

func (b *Bus) Subscribe(name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], handler)
}

func (b *Bus) Publish(ctx context.Context, event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	b.mu.RLock()
	handlers := b.handlers[event.Name]
	b.mu.RUnlock()

	slog.Debug("publishing event", "event", event.Name, "target_id", event.TargetID)
	for _, handler := range handlers {
		handler(ctx, event)
	}
}
