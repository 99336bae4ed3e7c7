package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostelhunt/internal/app/commands"
	"hostelhunt/internal/app/outbox"
	"hostelhunt/internal/app/uow"
	domainbooking "hostelhunt/internal/domain/booking"
	domainhostels "hostelhunt/internal/domain/hostels"
	domainpayments "hostelhunt/internal/domain/payments"
	domainreviews "hostelhunt/internal/domain/reviews"
	domainuser "hostelhunt/internal/domain/user"
)

type echoCommand struct {
	Value   string `validate:"required"`
	Owner   string
	IdemKey string
}

func (c echoCommand) Key() string                 { return "test.echo" }
func (c echoCommand) ReplayKey() (string, string) { return c.Owner, c.IdemKey }
func (c echoCommand) ReplayTarget() any           { return &echoResult{} }

type echoResult struct {
	Value string `json:"value"`
}

type memoryIdempotency struct {
	mu      sync.Mutex
	records map[string]IdempotencyRecord
}

func (m *memoryIdempotency) Get(_ context.Context, key string) (IdempotencyRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	return rec, ok, nil
}

func (m *memoryIdempotency) Save(_ context.Context, rec IdempotencyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records == nil {
		m.records = map[string]IdempotencyRecord{}
	}
	m.records[rec.Key] = rec
	return nil
}

type fakeUnit struct {
	committed  bool
	rolledBack bool
}

func (u *fakeUnit) Users() domainuser.Repository             { return nil }
func (u *fakeUnit) Landlords() domainuser.LandlordRepository { return nil }
func (u *fakeUnit) Hostels() domainhostels.Repository        { return nil }
func (u *fakeUnit) Bookings() domainbooking.Repository       { return nil }
func (u *fakeUnit) Reviews() domainreviews.Repository        { return nil }
func (u *fakeUnit) Payments() domainpayments.Repository      { return nil }
func (u *fakeUnit) Outbox() outbox.Outbox                    { return nil }
func (u *fakeUnit) Commit(context.Context) error             { u.committed = true; return nil }
func (u *fakeUnit) Rollback(context.Context) error           { u.rolledBack = true; return nil }

type fakeFactory struct {
	units []*fakeUnit
}

func (f *fakeFactory) Begin(context.Context, uow.TxOptions) (uow.UnitOfWork, error) {
	u := &fakeUnit{}
	f.units = append(f.units, u)
	return u, nil
}

type countingFlusher struct {
	calls   int
	onFlush func()
}

func (f *countingFlusher) Flush(context.Context) error {
	f.calls++
	if f.onFlush != nil {
		f.onFlush()
	}
	return nil
}

func newBus(t *testing.T, fail bool, calls *int) *commands.InMemoryBus {
	t.Helper()
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler(bus, echoCommand{}.Key(), commands.HandlerFunc[echoCommand, *echoResult](
		func(ctx context.Context, cmd echoCommand) (*echoResult, error) {
			*calls++
			if _, ok := uow.Bound(ctx); !ok {
				return nil, errors.New("unit missing")
			}
			if fail {
				return nil, errors.New("boom")
			}
			return &echoResult{Value: cmd.Value}, nil
		}))
	return bus
}

func TestChainCommitsAndFlushes(t *testing.T) {
	calls := 0
	factory := &fakeFactory{}
	committedAtFlush := false
	flusher := &countingFlusher{onFlush: func() {
		committedAtFlush = factory.units[len(factory.units)-1].committed
	}}
	bus := ChainCommands(newBus(t, false, &calls),
		Validation(NewStructValidator()),
		Idempotency(&memoryIdempotency{}),
		OutboxFlush(flusher, nil),
		Transaction(factory),
	)

	res, err := commands.Dispatch[echoCommand, *echoResult](context.Background(), bus, echoCommand{Value: "hi", IdemKey: "k1"})
	require.NoError(t, err)
	assert.Equal(t, "hi", res.Value)
	require.Len(t, factory.units, 1)
	assert.True(t, factory.units[0].committed)
	assert.Equal(t, 1, flusher.calls)
	assert.True(t, committedAtFlush, "relay woken before commit")

	again, err := commands.Dispatch[echoCommand, *echoResult](context.Background(), bus, echoCommand{Value: "other", IdemKey: "k1"})
	require.NoError(t, err)
	assert.Equal(t, "hi", again.Value)
	assert.Equal(t, 1, calls)
}

func TestChainRollsBackOnError(t *testing.T) {
	calls := 0
	factory := &fakeFactory{}
	flusher := &countingFlusher{}
	bus := ChainCommands(newBus(t, true, &calls), OutboxFlush(flusher, nil), Transaction(factory))

	_, err := bus.Dispatch(context.Background(), echoCommand{Value: "x"})
	require.Error(t, err)
	require.Len(t, factory.units, 1)
	assert.False(t, factory.units[0].committed)
	assert.True(t, factory.units[0].rolledBack)
	assert.Zero(t, flusher.calls)
}

func TestValidationRejectsMissingFields(t *testing.T) {
	calls := 0
	bus := ChainCommands(newBus(t, false, &calls), Validation(NewStructValidator()))
	_, err := bus.Dispatch(context.Background(), echoCommand{})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "value is required")
	assert.Zero(t, calls)
}

func TestIdempotencyDoesNotStoreFailures(t *testing.T) {
	store := &memoryIdempotency{}
	calls := 0
	failing := ChainCommands(newBus(t, true, &calls), Idempotency(store), Transaction(&fakeFactory{}))
	_, err := failing.Dispatch(context.Background(), echoCommand{Value: "x", Owner: "u-1", IdemKey: "k"})
	require.Error(t, err)
	assert.Empty(t, store.records)

	ok := ChainCommands(newBus(t, false, &calls), Idempotency(store), Transaction(&fakeFactory{}))
	res, err := commands.Dispatch[echoCommand, *echoResult](context.Background(), ok, echoCommand{Value: "x", Owner: "u-1", IdemKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "x", res.Value)
	assert.Equal(t, 2, calls)
}

func TestIdempotencyKeysAreScopedToOwner(t *testing.T) {
	store := &memoryIdempotency{}
	calls := 0
	bus := ChainCommands(newBus(t, false, &calls), Idempotency(store), Transaction(&fakeFactory{}))

	_, err := bus.Dispatch(context.Background(), echoCommand{Value: "first", Owner: "u-1", IdemKey: "k"})
	require.NoError(t, err)
	res, err := commands.Dispatch[echoCommand, *echoResult](context.Background(), bus, echoCommand{Value: "second", Owner: "u-2", IdemKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "second", res.Value)
	assert.Equal(t, 2, calls)

	require.Contains(t, store.records, "test.echo/u-1/k")
	assert.Equal(t, "test.echo", store.records["test.echo/u-1/k"].Command)
}

type failingFlusher struct{}

func (failingFlusher) Flush(context.Context) error { return errors.New("relay down") }

func TestFlushFailureKeepsCommittedResult(t *testing.T) {
	calls := 0
	factory := &fakeFactory{}
	bus := ChainCommands(newBus(t, false, &calls), OutboxFlush(failingFlusher{}, nil), Transaction(factory))
	res, err := commands.Dispatch[echoCommand, *echoResult](context.Background(), bus, echoCommand{Value: "kept"})
	require.NoError(t, err)
	assert.Equal(t, "kept", res.Value)
	assert.True(t, factory.units[0].committed)
}
