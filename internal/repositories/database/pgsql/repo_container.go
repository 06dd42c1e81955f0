package pgsql

import (
	"log/slog"

	portsrepo "github.com/faithledger/donation_engine/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool, logger *slog.Logger) portsrepo.RepositoryProvider {
	donationRepo := newPgxDonationRepository(dbPool)
	categoryRepo := newPgxCategoryRepository(dbPool)
	eventRepo := newPgxEventRepository(dbPool, logger)

	return portsrepo.RepositoryProvider{
		DonationRepo: donationRepo,
		CategoryRepo: categoryRepo,
		EventSource:  eventRepo,
		EventSink:    eventRepo,
	}
}
