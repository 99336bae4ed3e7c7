package middleware

import (
	"context"

	"hostelhunt/internal/app/commands"
	"hostelhunt/internal/app/uow"
)

// SelfManaged commands open their own units of work, one per step, so a
// failure in one step does not undo the others.
type SelfManaged interface {
	SelfManagedUnits() bool
}

// Transaction runs each command inside one unit of work bound to ctx and
// commits only when the handler returns without error.
func Transaction(factory uow.UoWFactory) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if sm, ok := cmd.(SelfManaged); ok && sm.SelfManagedUnits() {
				return next.Dispatch(ctx, cmd)
			}
			if _, ok := uow.Bound(ctx); ok {
				return next.Dispatch(ctx, cmd)
			}
			return inUnit(ctx, factory, func(ctx context.Context) (any, error) {
				return next.Dispatch(ctx, cmd)
			})
		})
	}
}

func inUnit(ctx context.Context, factory uow.UoWFactory, fn func(context.Context) (any, error)) (res any, err error) {
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	ctx = uow.Bind(ctx, unit)
	defer func() {
		if err != nil {
			_ = unit.Rollback(ctx)
		}
	}()
	if res, err = fn(ctx); err != nil {
		return nil, err
	}
	if err = unit.Commit(ctx); err != nil {
		return nil, err
	}
	return res, nil
}
