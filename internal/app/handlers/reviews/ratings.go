package reviews

import (
	"context"
	"errors"
	"time"

	"hostelhunt/internal/app/uow"
	domainhostels "hostelhunt/internal/domain/hostels"
	domainuser "hostelhunt/internal/domain/user"
)

// recomputeRatings refreshes the hostel aggregate and the aggregate of its
// landlord, which spans every review of every hostel the landlord owns.
func recomputeRatings(ctx context.Context, unit uow.UnitOfWork, hostelID domainhostels.ID, now time.Time) error {
	hostel, err := unit.Hostels().ByID(ctx, hostelID)
	if err != nil {
		return err
	}
	summary, err := unit.Reviews().SummaryByHostels(ctx, []domainhostels.ID{hostel.ID})
	if err != nil {
		return err
	}
	hostel.UpdateRating(summary.Average(), summary.Count, now)
	if err := unit.Hostels().Save(ctx, hostel); err != nil {
		return err
	}

	landlord, err := unit.Landlords().ByID(ctx, hostel.LandlordID)
	if errors.Is(err, domainuser.ErrLandlordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	owned, err := unit.Hostels().ListByLandlord(ctx, landlord.ID)
	if err != nil {
		return err
	}
	ids := make([]domainhostels.ID, 0, len(owned))
	for _, h := range owned {
		ids = append(ids, h.ID)
	}
	total, err := unit.Reviews().SummaryByHostels(ctx, ids)
	if err != nil {
		return err
	}
	landlord.UpdateRating(total.Average(), total.Count, now)
	return unit.Landlords().Save(ctx, landlord)
}
