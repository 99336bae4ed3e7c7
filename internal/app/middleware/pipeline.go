package middleware

import (
	"context"
	"slices"

	"hostelhunt/internal/app/commands"
	"hostelhunt/internal/app/queries"
)

type CommandMiddleware func(next commands.Bus) commands.Bus

type QueryMiddleware func(next queries.Bus) queries.Bus

// ChainCommands wraps base so that mws[0] sees every command first.
func ChainCommands(base commands.Bus, mws ...CommandMiddleware) commands.Bus {
	return chain(base, mws)
}

// ChainQueries wraps base so that mws[0] sees every query first.
func ChainQueries(base queries.Bus, mws ...QueryMiddleware) queries.Bus {
	return chain(base, mws)
}

func chain[B any, M ~func(B) B](base B, mws []M) B {
	for _, mw := range slices.Backward(mws) {
		base = mw(base)
	}
	return base
}

type commandFunc func(ctx context.Context, cmd commands.Command) (any, error)

func (f commandFunc) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	return f(ctx, cmd)
}

type queryFunc func(ctx context.Context, query queries.Query) (any, error)

func (f queryFunc) Ask(ctx context.Context, q queries.Query) (any, error) {
	return f(ctx, q)
}

// guard is a check that runs ahead of the handler and aborts on error.
type guard func(ctx context.Context, message any) error

func (g guard) commands(next commands.Bus) commands.Bus {
	return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		if err := g(ctx, cmd); err != nil {
			return nil, err
		}
		return next.Dispatch(ctx, cmd)
	})
}

func (g guard) queries(next queries.Bus) queries.Bus {
	return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
		if err := g(ctx, q); err != nil {
			return nil, err
		}
		return next.Ask(ctx, q)
	})
}
