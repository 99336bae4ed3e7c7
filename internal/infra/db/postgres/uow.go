package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	appoutbox "hostelhunt/internal/app/outbox"
	"hostelhunt/internal/app/uow"
	domainbooking "hostelhunt/internal/domain/booking"
	domainhostels "hostelhunt/internal/domain/hostels"
	domainpayments "hostelhunt/internal/domain/payments"
	domainreviews "hostelhunt/internal/domain/reviews"
	domainuser "hostelhunt/internal/domain/user"
)

var ErrFactoryMisconfigured = errors.New("postgres: unit of work factory misconfigured")

// Factory begins units of work as database transactions.
type Factory struct {
	Pool *pgxpool.Pool
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Pool == nil {
		return nil, ErrFactoryMisconfigured
	}
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	if opts.ReadOnly {
		txOpts.AccessMode = pgx.ReadOnly
	}
	tx, err := f.Pool.BeginTx(ctx, txOpts)
	if err != nil {
		return nil, err
	}
	return &Unit{tx: tx}, nil
}

// Unit wraps one transaction. Outbox records are inserted in the same
// transaction, so they become visible only on commit.
type Unit struct {
	tx pgx.Tx
}

func (u *Unit) Users() domainuser.Repository             { return userRepo{u.tx} }
func (u *Unit) Landlords() domainuser.LandlordRepository { return landlordRepo{u.tx} }
func (u *Unit) Hostels() domainhostels.Repository        { return hostelRepo{u.tx} }
func (u *Unit) Bookings() domainbooking.Repository       { return bookingRepo{u.tx} }
func (u *Unit) Reviews() domainreviews.Repository        { return reviewRepo{u.tx} }
func (u *Unit) Payments() domainpayments.Repository      { return paymentRepo{u.tx} }
func (u *Unit) Outbox() appoutbox.Outbox                 { return txOutbox{u.tx} }

func (u *Unit) Commit(ctx context.Context) error {
	return u.tx.Commit(ctx)
}

func (u *Unit) Rollback(ctx context.Context) error {
	err := u.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

var _ uow.UoWFactory = Factory{}
