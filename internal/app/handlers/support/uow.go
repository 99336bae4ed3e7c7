package support

import (
	"context"
	"time"

	"hostelhunt/internal/app/outbox"
	"hostelhunt/internal/app/uow"
	"hostelhunt/internal/domain/shared/events"
	domainuser "hostelhunt/internal/domain/user"
)

func BeginReadOnlyUnit(ctx context.Context, factory uow.UoWFactory) (uow.UnitOfWork, context.Context, func(), error) {
	unit, ok := uow.Bound(ctx)
	if ok {
		return unit, ctx, nil, nil
	}
	if factory == nil {
		return nil, ctx, nil, uow.ErrNoUnit
	}
	newUnit, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, ctx, nil, err
	}
	execCtx := uow.Bind(ctx, newUnit)
	cleanup := func() {
		_ = newUnit.Rollback(execCtx)
	}
	return newUnit, execCtx, cleanup, nil
}

// Unit is a write unit of work that is either inherited from the context
// (the transaction middleware owns it) or started and owned by the handler.
type Unit struct {
	uow.UnitOfWork
	managed   bool
	committed bool
}

// BeginUnit reuses the unit stored in ctx or begins a new one.
func BeginUnit(ctx context.Context, factory uow.UoWFactory) (*Unit, context.Context, error) {
	if unit, ok := uow.Bound(ctx); ok {
		return &Unit{UnitOfWork: unit}, ctx, nil
	}
	if factory == nil {
		return nil, ctx, uow.ErrNoUnit
	}
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return nil, ctx, err
	}
	return &Unit{UnitOfWork: unit, managed: true}, uow.Bind(ctx, unit), nil
}

// Commit commits only a handler-owned unit.
func (u *Unit) Commit(ctx context.Context) error {
	if !u.managed || u.committed {
		return nil
	}
	if err := u.UnitOfWork.Commit(ctx); err != nil {
		return err
	}
	u.committed = true
	return nil
}

// Release rolls back a handler-owned unit that was not committed.
func (u *Unit) Release(ctx context.Context) {
	if u.managed && !u.committed {
		_ = u.UnitOfWork.Rollback(ctx)
	}
}

// RecordEvents drains every source into the unit's outbox.
func RecordEvents(ctx context.Context, unit uow.UnitOfWork, encoder outbox.EventEncoder, sources ...events.Source) error {
	var pending []events.DomainEvent
	for _, src := range sources {
		if src == nil {
			continue
		}
		pending = append(pending, src.DrainEvents()...)
	}
	return outbox.RecordDomainEvents(ctx, unit.Outbox(), encoder, pending)
}

// Now returns t, or the current UTC time when t is zero.
func Now(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

// Actor is the authenticated caller of a command.
type Actor struct {
	ID   domainuser.ID
	Role domainuser.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == domainuser.RoleAdmin
}
