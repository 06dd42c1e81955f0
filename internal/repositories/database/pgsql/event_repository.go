package pgsql

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/faithledger/donation_engine/internal/core/domain"
	portsrepo "github.com/faithledger/donation_engine/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ledgerEventChannel is the Postgres NOTIFY channel carrying ledger events.
const ledgerEventChannel = "ledger_events"

// PgxEventRepository implements the ledger event source and publisher on top
// of Postgres LISTEN/NOTIFY. Delivery is best effort: a dropped notification
// is recovered by the cache layer's TTL expiry, so no durable queue is needed.
type PgxEventRepository struct {
	BaseRepository
	logger *slog.Logger
}

// newPgxEventRepository creates a new LISTEN/NOTIFY backed event repository.
func newPgxEventRepository(pool *pgxpool.Pool, logger *slog.Logger) *PgxEventRepository {
	return &PgxEventRepository{
		BaseRepository: BaseRepository{Pool: pool},
		logger:         logger,
	}
}

// Ensure PgxEventRepository implements both event ports
var _ portsrepo.LedgerEventSource = (*PgxEventRepository)(nil)
var _ portsrepo.LedgerEventPublisher = (*PgxEventRepository)(nil)

// PublishEvent emits a ledger change event as a JSON NOTIFY payload.
func (r *PgxEventRepository) PublishEvent(ctx context.Context, event domain.LedgerEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger event %d: %w", event.Sequence, err)
	}
	if _, err := r.Pool.Exec(ctx, `SELECT pg_notify($1, $2);`, ledgerEventChannel, string(payload)); err != nil {
		return fmt.Errorf("failed to notify ledger event %d: %w", event.Sequence, err)
	}
	return nil
}

// SubscribeDonor returns a channel of ledger events scoped to one donor
// subject. A dedicated connection is held for the lifetime of the
// subscription; cancelling ctx releases it and closes the channel.
func (r *PgxEventRepository) SubscribeDonor(ctx context.Context, donorID string) (<-chan domain.LedgerEvent, error) {
	conn, err := r.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire listener connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+ledgerEventChannel+";"); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to listen on %s: %w", ledgerEventChannel, err)
	}

	// Small buffer so a slow consumer doesn't stall the listener loop
	// immediately; sustained backpressure drops events, which TTL covers.
	events := make(chan domain.LedgerEvent, 16)

	go func() {
		defer close(events)
		defer conn.Release()

		for {
			notification, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					r.logger.Error("ledger event listener stopped", "donor_id", donorID, "error", err)
				}
				return
			}

			var event domain.LedgerEvent
			if err := json.Unmarshal([]byte(notification.Payload), &event); err != nil {
				r.logger.Warn("discarding malformed ledger event payload", "error", err)
				continue
			}
			if event.DonorID == nil || *event.DonorID != donorID {
				continue
			}

			select {
			case events <- event:
			case <-ctx.Done():
				return
			default:
				r.logger.Warn("dropping ledger event for slow subscriber",
					"donor_id", donorID, "sequence", event.Sequence)
			}
		}
	}()

	return events, nil
}
