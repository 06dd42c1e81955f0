package repositories

import (
	"context"

	"github.com/faithledger/donation_engine/internal/core/domain"
)

// LedgerEventSource delivers live change events from the donation ledger.
// Implementations scope the subscription to the given donor subject so the
// cache layer only sees events that can affect its entry.
type LedgerEventSource interface {
	// SubscribeDonor returns a channel of ledger events for a single donor
	// subject. The channel is closed when ctx is cancelled.
	SubscribeDonor(ctx context.Context, donorID string) (<-chan domain.LedgerEvent, error)
}

// LedgerEventPublisher emits change events after successful ledger writes.
type LedgerEventPublisher interface {
	// PublishEvent emits a ledger change event. Delivery is best effort;
	// cache consumers fall back to TTL expiry when events are missed.
	PublishEvent(ctx context.Context, event domain.LedgerEvent) error
}
