package memory

import (
	"context"
	"errors"
	"sync"

	appoutbox "hostelhunt/internal/app/outbox"
	"hostelhunt/internal/app/uow"
	domainbooking "hostelhunt/internal/domain/booking"
	domainhostels "hostelhunt/internal/domain/hostels"
	domainpayments "hostelhunt/internal/domain/payments"
	domainreviews "hostelhunt/internal/domain/reviews"
	domainuser "hostelhunt/internal/domain/user"
)

var (
	// ErrFactoryMisconfigured indicates a factory without a backing store.
	ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")
	ErrReadOnly             = errors.New("memory: write in read-only unit of work")
	ErrUnitClosed           = errors.New("memory: unit of work already finished")
)

// Store keeps every aggregate in process memory. Units of work serialize on its
// lock: writers are exclusive, read-only units share it.
type Store struct {
	mu        sync.RWMutex
	users     map[domainuser.ID]*domainuser.User
	emails    map[string]domainuser.ID
	landlords map[domainuser.LandlordID]*domainuser.Landlord
	hostels   map[domainhostels.ID]*domainhostels.Hostel
	bookings  map[domainbooking.ID]*domainbooking.Booking
	reviews   map[domainreviews.ID]*domainreviews.Review
	payments  map[domainpayments.ID]*domainpayments.Payment
}

func NewStore() *Store {
	return &Store{
		users:     make(map[domainuser.ID]*domainuser.User),
		emails:    make(map[string]domainuser.ID),
		landlords: make(map[domainuser.LandlordID]*domainuser.Landlord),
		hostels:   make(map[domainhostels.ID]*domainhostels.Hostel),
		bookings:  make(map[domainbooking.ID]*domainbooking.Booking),
		reviews:   make(map[domainreviews.ID]*domainreviews.Review),
		payments:  make(map[domainpayments.ID]*domainpayments.Payment),
	}
}

// Factory begins units of work over a Store. Committed events go to Outbox.
type Factory struct {
	Store  *Store
	Outbox appoutbox.Outbox
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Store == nil {
		return nil, ErrFactoryMisconfigured
	}
	if opts.ReadOnly {
		f.Store.mu.RLock()
	} else {
		f.Store.mu.Lock()
	}
	return &Unit{store: f.Store, sink: f.Outbox, readOnly: opts.ReadOnly}, nil
}

// Unit applies writes to the store immediately and keeps an undo log for Rollback.
type Unit struct {
	store    *Store
	sink     appoutbox.Outbox
	readOnly bool
	undo     []func()
	pending  []appoutbox.EventRecord
	done     bool
}

func (u *Unit) Users() domainuser.Repository             { return userRepo{u} }
func (u *Unit) Landlords() domainuser.LandlordRepository { return landlordRepo{u} }
func (u *Unit) Hostels() domainhostels.Repository        { return hostelRepo{u} }
func (u *Unit) Bookings() domainbooking.Repository       { return bookingRepo{u} }
func (u *Unit) Reviews() domainreviews.Repository        { return reviewRepo{u} }
func (u *Unit) Payments() domainpayments.Repository      { return paymentRepo{u} }
func (u *Unit) Outbox() appoutbox.Outbox                 { return unitOutbox{u} }

func (u *Unit) Commit(ctx context.Context) error {
	if u.done {
		return ErrUnitClosed
	}
	if u.sink != nil {
		for _, rec := range u.pending {
			if err := u.sink.Add(ctx, rec); err != nil {
				u.rollback()
				return err
			}
		}
	}
	u.finish()
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.rollback()
	return nil
}

func (u *Unit) rollback() {
	for i := len(u.undo) - 1; i >= 0; i-- {
		u.undo[i]()
	}
	u.finish()
}

func (u *Unit) finish() {
	u.done = true
	u.undo = nil
	u.pending = nil
	if u.readOnly {
		u.store.mu.RUnlock()
	} else {
		u.store.mu.Unlock()
	}
}

func (u *Unit) writable() error {
	if u.done {
		return ErrUnitClosed
	}
	if u.readOnly {
		return ErrReadOnly
	}
	return nil
}

// remember records the current entry under key so Rollback can restore it.
func remember[K comparable, V any](u *Unit, m map[K]V, key K) {
	prev, had := m[key]
	u.undo = append(u.undo, func() {
		if had {
			m[key] = prev
		} else {
			delete(m, key)
		}
	})
}

type unitOutbox struct{ u *Unit }

func (o unitOutbox) Add(_ context.Context, record appoutbox.EventRecord) error {
	if err := o.u.writable(); err != nil {
		return err
	}
	o.u.pending = append(o.u.pending, record)
	return nil
}

var (
	_ uow.UoWFactory = Factory{}
	_ uow.UnitOfWork = (*Unit)(nil)
)
