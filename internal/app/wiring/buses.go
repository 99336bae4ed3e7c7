// Package wiring registers every application handler on the command and query
// buses and wraps them in the middleware pipeline.
package wiring

import (
	"log/slog"

	"hostelhunt/internal/app/commands"
	"hostelhunt/internal/app/dto"
	bookingapp "hostelhunt/internal/app/handlers/booking"
	hostelsapp "hostelhunt/internal/app/handlers/hostels"
	identityapp "hostelhunt/internal/app/handlers/identity"
	paymentsapp "hostelhunt/internal/app/handlers/payments"
	reviewsapp "hostelhunt/internal/app/handlers/reviews"
	"hostelhunt/internal/app/middleware"
	"hostelhunt/internal/app/notifications"
	"hostelhunt/internal/app/outbox"
	"hostelhunt/internal/app/policies"
	"hostelhunt/internal/app/queries"
	"hostelhunt/internal/app/uow"
	domainauth "hostelhunt/internal/domain/auth"
)

type Deps struct {
	UoWFactory  uow.UoWFactory
	Encoder     outbox.EventEncoder
	Flusher     outbox.Flusher
	Idempotency middleware.IdempotencyStore
	Sessions    domainauth.SessionStore
	Gateway     policies.PaymentGateway
	Uploader    policies.Uploader
	Notifier    *notifications.Notifier
	Booking     bookingapp.Policy
	Logger      *slog.Logger
}

type Buses struct {
	Commands commands.Bus
	Queries  queries.Bus
}

// Build returns buses with the full pipeline: validation, authorization,
// idempotency, outbox wake-up and transaction, outermost first.
func Build(d Deps) Buses {
	encoder := d.Encoder
	if encoder == nil {
		encoder = outbox.JSONEventEncoder{}
	}
	cmdBus := commands.NewInMemoryBus()
	queryBus := queries.NewInMemoryBus()

	registerIdentity(cmdBus, queryBus, d, encoder)
	registerHostels(cmdBus, queryBus, d, encoder)
	registerBooking(cmdBus, queryBus, d, encoder)
	registerReviews(cmdBus, queryBus, d, encoder)
	registerPayments(cmdBus, queryBus, d, encoder)

	completer := &bookingapp.CompleteStaysHandler{UoWFactory: d.UoWFactory, Encoder: encoder, Logger: d.Logger}
	commands.RegisterHandler(cmdBus, bookingapp.CompleteStaysCommand{}.Key(), completer)
	commands.RegisterHandler(cmdBus, notifications.RunRemindersCommand{}.Key(), &notifications.RemindersHandler{
		UoWFactory: d.UoWFactory,
		Completer:  completer,
		Notifier:   d.Notifier,
		Logger:     d.Logger,
	})

	validator := middleware.NewStructValidator()
	cmdMW := []middleware.CommandMiddleware{
		middleware.Validation(validator),
		middleware.Authorization(policies.RoleAuthorizer{}),
	}
	if d.Idempotency != nil {
		cmdMW = append(cmdMW, middleware.Idempotency(d.Idempotency))
	}
	// OutboxFlush wraps Transaction so the relay wakes after the commit.
	if d.Flusher != nil {
		cmdMW = append(cmdMW, middleware.OutboxFlush(d.Flusher, d.Logger))
	}
	cmdMW = append(cmdMW, middleware.Transaction(d.UoWFactory))
	return Buses{
		Commands: middleware.ChainCommands(cmdBus, cmdMW...),
		Queries: middleware.ChainQueries(queryBus,
			middleware.QueryValidation(validator),
			middleware.QueryAuthorization(policies.RoleAuthorizer{}),
		),
	}
}

func registerIdentity(cmdBus *commands.InMemoryBus, queryBus *queries.InMemoryBus, d Deps, encoder outbox.EventEncoder) {
	commands.RegisterHandler(cmdBus, identityapp.UpdateProfileCommand{}.Key(), &identityapp.UpdateProfileHandler{UoWFactory: d.UoWFactory, Encoder: encoder, Logger: d.Logger})
	commands.RegisterHandler(cmdBus, identityapp.CreateLandlordProfileCommand{}.Key(), &identityapp.CreateLandlordProfileHandler{UoWFactory: d.UoWFactory, Encoder: encoder, Logger: d.Logger})
	commands.RegisterHandler(cmdBus, identityapp.UpdateLandlordProfileCommand{}.Key(), &identityapp.UpdateLandlordProfileHandler{UoWFactory: d.UoWFactory})
	commands.RegisterHandler(cmdBus, identityapp.ChangeRoleCommand{}.Key(), &identityapp.ChangeRoleHandler{UoWFactory: d.UoWFactory, Encoder: encoder, Logger: d.Logger})
	commands.RegisterHandler(cmdBus, identityapp.SetUserActiveCommand{}.Key(), &identityapp.SetUserActiveHandler{UoWFactory: d.UoWFactory, Sessions: d.Sessions, Encoder: encoder, Logger: d.Logger})

	queries.RegisterHandler(queryBus, identityapp.GetProfileQuery{}.Key(), &identityapp.GetProfileHandler{UoWFactory: d.UoWFactory})
	queries.RegisterHandler(queryBus, identityapp.UserStatsQuery{}.Key(), &identityapp.UserStatsHandler{UoWFactory: d.UoWFactory})
	queries.RegisterHandler(queryBus, identityapp.GetLandlordProfileQuery{}.Key(), &identityapp.GetLandlordProfileHandler{UoWFactory: d.UoWFactory})
	queries.RegisterHandler(queryBus, identityapp.PublicLandlordQuery{}.Key(), &identityapp.PublicLandlordHandler{UoWFactory: d.UoWFactory})
	queries.RegisterHandler(queryBus, identityapp.ListUsersQuery{}.Key(), &identityapp.ListUsersHandler{UoWFactory: d.UoWFactory})
	queries.RegisterHandler(queryBus, identityapp.PlatformStatsQuery{}.Key(), &identityapp.PlatformStatsHandler{UoWFactory: d.UoWFactory})
}

func registerHostels(cmdBus *commands.InMemoryBus, queryBus *queries.InMemoryBus, d Deps, encoder outbox.EventEncoder) {
	commands.RegisterHandler(cmdBus, hostelsapp.CreateHostelCommand{}.Key(), &hostelsapp.CreateHostelHandler{UoWFactory: d.UoWFactory, Encoder: encoder, Logger: d.Logger})
	commands.RegisterHandler(cmdBus, hostelsapp.UpdateHostelCommand{}.Key(), &hostelsapp.UpdateHostelHandler{UoWFactory: d.UoWFactory, Encoder: encoder, Logger: d.Logger})
	commands.RegisterHandler(cmdBus, hostelsapp.DeleteHostelCommand{}.Key(), &hostelsapp.DeleteHostelHandler{UoWFactory: d.UoWFactory, Logger: d.Logger})
	commands.RegisterHandler(cmdBus, hostelsapp.UploadHostelImageCommand{}.Key(), &hostelsapp.UploadHostelImageHandler{UoWFactory: d.UoWFactory, Uploader: d.Uploader, Logger: d.Logger})

	moderation := &hostelsapp.ModerationHandler{UoWFactory: d.UoWFactory, Encoder: encoder, Logger: d.Logger}
	commands.RegisterHandler(cmdBus, hostelsapp.SetVerifiedCommand{}.Key(), commands.HandlerFunc[hostelsapp.SetVerifiedCommand, dto.Hostel](moderation.HandleVerify))
	commands.RegisterHandler(cmdBus, hostelsapp.SetFeaturedCommand{}.Key(), commands.HandlerFunc[hostelsapp.SetFeaturedCommand, dto.Hostel](moderation.HandleFeature))

	queries.RegisterHandler(queryBus, hostelsapp.GetHostelQuery{}.Key(), &hostelsapp.GetHostelHandler{UoWFactory: d.UoWFactory})
	queries.RegisterHandler(queryBus, hostelsapp.SearchHostelsQuery{}.Key(), &hostelsapp.SearchHostelsHandler{UoWFactory: d.UoWFactory})
	queries.RegisterHandler(queryBus, hostelsapp.LandlordHostelsQuery{}.Key(), &hostelsapp.LandlordHostelsHandler{UoWFactory: d.UoWFactory})

	discovery := &hostelsapp.DiscoveryHandler{UoWFactory: d.UoWFactory}
	queries.RegisterHandler(queryBus, hostelsapp.SuggestionsQuery{}.Key(), queries.HandlerFunc[hostelsapp.SuggestionsQuery, []string](discovery.Suggestions))
	queries.RegisterHandler(queryBus, hostelsapp.PopularLocationsQuery{}.Key(), queries.HandlerFunc[hostelsapp.PopularLocationsQuery, []dto.LocationCount](discovery.PopularLocations))
	queries.RegisterHandler(queryBus, hostelsapp.PriceRangesQuery{}.Key(), queries.HandlerFunc[hostelsapp.PriceRangesQuery, dto.PriceRanges](discovery.PriceRanges))
	queries.RegisterHandler(queryBus, hostelsapp.FilterOptionsQuery{}.Key(), queries.HandlerFunc[hostelsapp.FilterOptionsQuery, dto.FilterOptions](discovery.FilterOptions))
}

func registerBooking(cmdBus *commands.InMemoryBus, queryBus *queries.InMemoryBus, d Deps, encoder outbox.EventEncoder) {
	commands.RegisterHandler(cmdBus, bookingapp.CreateBookingCommand{}.Key(), &bookingapp.CreateBookingHandler{UoWFactory: d.UoWFactory, Encoder: encoder, Policy: d.Booking, Logger: d.Logger})

	lifecycle := &bookingapp.LifecycleHandler{UoWFactory: d.UoWFactory, Encoder: encoder, Logger: d.Logger}
	commands.RegisterHandler(cmdBus, bookingapp.UpdateStatusCommand{}.Key(), commands.HandlerFunc[bookingapp.UpdateStatusCommand, dto.Booking](lifecycle.UpdateStatus))
	commands.RegisterHandler(cmdBus, bookingapp.CancelCommand{}.Key(), commands.HandlerFunc[bookingapp.CancelCommand, dto.Booking](lifecycle.Cancel))
	commands.RegisterHandler(cmdBus, bookingapp.RefundCommand{}.Key(), commands.HandlerFunc[bookingapp.RefundCommand, dto.Refund](lifecycle.Refund))

	reads := &bookingapp.QueryHandler{UoWFactory: d.UoWFactory}
	queries.RegisterHandler(queryBus, bookingapp.GetBookingQuery{}.Key(), queries.HandlerFunc[bookingapp.GetBookingQuery, dto.Booking](reads.Get))
	queries.RegisterHandler(queryBus, bookingapp.ListMineQuery{}.Key(), queries.HandlerFunc[bookingapp.ListMineQuery, dto.BookingPage](reads.ListMine))
	queries.RegisterHandler(queryBus, bookingapp.ListForLandlordQuery{}.Key(), queries.HandlerFunc[bookingapp.ListForLandlordQuery, dto.BookingPage](reads.ListForLandlord))
}

func registerReviews(cmdBus *commands.InMemoryBus, queryBus *queries.InMemoryBus, d Deps, encoder outbox.EventEncoder) {
	writes := &reviewsapp.CommandHandler{UoWFactory: d.UoWFactory, Encoder: encoder, Logger: d.Logger}
	commands.RegisterHandler(cmdBus, reviewsapp.CreateReviewCommand{}.Key(), commands.HandlerFunc[reviewsapp.CreateReviewCommand, dto.Review](writes.Create))
	commands.RegisterHandler(cmdBus, reviewsapp.UpdateReviewCommand{}.Key(), commands.HandlerFunc[reviewsapp.UpdateReviewCommand, dto.Review](writes.Update))
	commands.RegisterHandler(cmdBus, reviewsapp.DeleteReviewCommand{}.Key(), commands.HandlerFunc[reviewsapp.DeleteReviewCommand, struct{}](writes.Delete))

	reads := &reviewsapp.QueryHandler{UoWFactory: d.UoWFactory}
	queries.RegisterHandler(queryBus, reviewsapp.HostelReviewsQuery{}.Key(), queries.HandlerFunc[reviewsapp.HostelReviewsQuery, dto.ReviewPage](reads.HostelReviews))
	queries.RegisterHandler(queryBus, reviewsapp.UserReviewsQuery{}.Key(), queries.HandlerFunc[reviewsapp.UserReviewsQuery, []dto.Review](reads.UserReviews))
	queries.RegisterHandler(queryBus, reviewsapp.GetReviewQuery{}.Key(), queries.HandlerFunc[reviewsapp.GetReviewQuery, dto.Review](reads.Get))
	queries.RegisterHandler(queryBus, reviewsapp.ReviewStatsQuery{}.Key(), queries.HandlerFunc[reviewsapp.ReviewStatsQuery, dto.ReviewStats](reads.Stats))
}

func registerPayments(cmdBus *commands.InMemoryBus, queryBus *queries.InMemoryBus, d Deps, encoder outbox.EventEncoder) {
	commands.RegisterHandler(cmdBus, paymentsapp.InitiateCommand{}.Key(), &paymentsapp.InitiateHandler{UoWFactory: d.UoWFactory, Gateway: d.Gateway, Encoder: encoder, Logger: d.Logger})
	commands.RegisterHandler(cmdBus, paymentsapp.CallbackCommand{}.Key(), &paymentsapp.CallbackHandler{UoWFactory: d.UoWFactory, Encoder: encoder, Logger: d.Logger})
	commands.RegisterHandler(cmdBus, paymentsapp.QueryStatusCommand{}.Key(), &paymentsapp.QueryStatusHandler{UoWFactory: d.UoWFactory, Gateway: d.Gateway, Encoder: encoder, Logger: d.Logger})

	reads := &paymentsapp.QueryHandler{UoWFactory: d.UoWFactory}
	queries.RegisterHandler(queryBus, paymentsapp.HistoryQuery{}.Key(), queries.HandlerFunc[paymentsapp.HistoryQuery, dto.PaymentPage](reads.History))
	queries.RegisterHandler(queryBus, paymentsapp.BookingPaymentsQuery{}.Key(), queries.HandlerFunc[paymentsapp.BookingPaymentsQuery, []dto.Payment](reads.ByBooking))
}
