package uow

import (
	"context"
	"errors"
)

// ErrNoUnit is returned when a handler needs an ambient unit and was given no factory.
var ErrNoUnit = errors.New("uow: no unit of work bound to context")

type boundUnit struct{}

// Bind attaches unit to ctx; handlers dispatched under ctx join its transaction.
func Bind(ctx context.Context, unit UnitOfWork) context.Context {
	return context.WithValue(ctx, boundUnit{}, unit)
}

// Bound returns the unit attached by Bind.
func Bound(ctx context.Context) (UnitOfWork, bool) {
	unit, ok := ctx.Value(boundUnit{}).(UnitOfWork)
	return unit, ok && unit != nil
}
