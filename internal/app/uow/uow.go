package uow

import (
	"context"

	"hostelhunt/internal/app/outbox"
	domainbooking "hostelhunt/internal/domain/booking"
	domainhostels "hostelhunt/internal/domain/hostels"
	domainpayments "hostelhunt/internal/domain/payments"
	domainreviews "hostelhunt/internal/domain/reviews"
	domainuser "hostelhunt/internal/domain/user"
)

// UnitOfWork coordinates repositories inside a transaction boundary.
// Events added to Outbox become visible only when the unit commits.
type UnitOfWork interface {
	Users() domainuser.Repository
	Landlords() domainuser.LandlordRepository
	Hostels() domainhostels.Repository
	Bookings() domainbooking.Repository
	Reviews() domainreviews.Repository
	Payments() domainpayments.Repository
	Outbox() outbox.Outbox

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}
