package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	domainhostels "hostelhunt/internal/domain/hostels"
	domainuser "hostelhunt/internal/domain/user"
)

const hostelColumns = `id, landlord_id, name, location, description, price_amount, currency, capacity, room_type,
	amenities, images, latitude, longitude, features, is_verified, is_featured, rating, review_count, created_at, updated_at`

type hostelRepo struct{ q querier }

func (r hostelRepo) ByID(ctx context.Context, id domainhostels.ID) (*domainhostels.Hostel, error) {
	row := r.q.QueryRow(ctx, `SELECT `+hostelColumns+` FROM hostels WHERE id = $1`, id)
	hostel, err := scanHostel(row)
	return hostel, notFound(err, domainhostels.ErrNotFound)
}

// ByIDForUpdate locks the hostel row until the transaction ends, serializing
// bookings against the same hostel.
func (r hostelRepo) ByIDForUpdate(ctx context.Context, id domainhostels.ID) (*domainhostels.Hostel, error) {
	row := r.q.QueryRow(ctx, `SELECT `+hostelColumns+` FROM hostels WHERE id = $1 FOR UPDATE`, id)
	hostel, err := scanHostel(row)
	return hostel, notFound(err, domainhostels.ErrNotFound)
}

func (r hostelRepo) Save(ctx context.Context, hostel *domainhostels.Hostel) error {
	if hostel == nil || hostel.ID == "" {
		return domainhostels.ErrNotFound
	}
	var lat, lng *float64
	if hostel.Coordinates != nil {
		lat, lng = &hostel.Coordinates.Lat, &hostel.Coordinates.Lng
	}
	features := hostel.Features
	if features == nil {
		features = map[string]bool{}
	}
	amenities := hostel.Amenities
	if amenities == nil {
		amenities = []int{}
	}
	images := hostel.Images
	if images == nil {
		images = []string{}
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO hostels (`+hostelColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			location = EXCLUDED.location,
			description = EXCLUDED.description,
			price_amount = EXCLUDED.price_amount,
			currency = EXCLUDED.currency,
			capacity = EXCLUDED.capacity,
			room_type = EXCLUDED.room_type,
			amenities = EXCLUDED.amenities,
			images = EXCLUDED.images,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			features = EXCLUDED.features,
			is_verified = EXCLUDED.is_verified,
			is_featured = EXCLUDED.is_featured,
			rating = EXCLUDED.rating,
			review_count = EXCLUDED.review_count,
			updated_at = EXCLUDED.updated_at
	`, hostel.ID, hostel.LandlordID, hostel.Name, hostel.Location, hostel.Description,
		hostel.Price.Amount, hostel.Price.Currency, hostel.Capacity, hostel.RoomType,
		amenities, images, lat, lng, features, hostel.Verified, hostel.Featured,
		hostel.Rating, hostel.ReviewCount, utc(hostel.CreatedAt), utc(hostel.UpdatedAt))
	return err
}

func (r hostelRepo) Delete(ctx context.Context, id domainhostels.ID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM hostels WHERE id = $1`, id)
	switch {
	case violates(err, codeForeignKeyViolation, ""):
		return domainhostels.ErrHasBookings
	case err != nil:
		return err
	case tag.RowsAffected() == 0:
		return domainhostels.ErrNotFound
	}
	return nil
}

func (r hostelRepo) ListByLandlord(ctx context.Context, landlordID domainuser.LandlordID) ([]*domainhostels.Hostel, error) {
	params := domainhostels.SearchParams{LandlordID: landlordID}.Normalized()
	where, args := searchFilter(params)
	rows, err := r.q.Query(ctx, `SELECT `+hostelColumns+` FROM hostels`+where+` ORDER BY `+searchOrder(params, 0), args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanHostel)
}

// Search filters and pages in SQL. A radius filter needs the haversine
// distance, so those searches page in process after the SQL filters ran.
func (r hostelRepo) Search(ctx context.Context, params domainhostels.SearchParams) (domainhostels.SearchResult, error) {
	params = params.Normalized()
	where, args := searchFilter(params)
	queryArg := 0
	if params.Sort == domainhostels.SortRelevance && params.Query != "" {
		args = append(args, likePattern(params.Query))
		queryArg = len(args)
	}
	order := searchOrder(params, queryArg)

	if params.Near != nil {
		rows, err := r.q.Query(ctx, `SELECT `+hostelColumns+` FROM hostels`+where+` ORDER BY `+order, args...)
		if err != nil {
			return domainhostels.SearchResult{}, err
		}
		items, err := collect(rows, scanHostel)
		if err != nil {
			return domainhostels.SearchResult{}, err
		}
		kept := items[:0]
		for _, hostel := range items {
			if params.Matches(hostel) {
				kept = append(kept, hostel)
			}
		}
		return domainhostels.Paginate(kept, params), nil
	}

	var total int
	countArgs := args
	if queryArg > 0 {
		countArgs = args[:queryArg-1]
	}
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM hostels`+where, countArgs...).Scan(&total); err != nil {
		return domainhostels.SearchResult{}, err
	}
	args = append(args, params.PerPage, params.Offset())
	sql := fmt.Sprintf(`SELECT %s FROM hostels%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		hostelColumns, where, order, len(args)-1, len(args))
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return domainhostels.SearchResult{}, err
	}
	items, err := collect(rows, scanHostel)
	if err != nil {
		return domainhostels.SearchResult{}, err
	}
	return domainhostels.SearchResult{Items: items, Total: total}, nil
}

// searchFilter renders every non-geographic filter of normalized params.
func searchFilter(params domainhostels.SearchParams) (string, []any) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) int {
		args = append(args, v)
		return len(args)
	}
	if params.LandlordID != "" {
		conds = append(conds, fmt.Sprintf("landlord_id = $%d", arg(params.LandlordID)))
	}
	if params.Location != "" {
		n := arg(likePattern(params.Location))
		conds = append(conds, fmt.Sprintf("(lower(location) LIKE $%d OR lower(name) LIKE $%d)", n, n))
	}
	if params.Query != "" {
		n := arg(likePattern(params.Query))
		conds = append(conds, fmt.Sprintf("(lower(name) LIKE $%d OR lower(location) LIKE $%d OR lower(description) LIKE $%d)", n, n, n))
	}
	if params.MinPrice > 0 {
		conds = append(conds, fmt.Sprintf("price_amount >= $%d", arg(params.MinPrice)))
	}
	if params.MaxPrice > 0 {
		conds = append(conds, fmt.Sprintf("price_amount <= $%d", arg(params.MaxPrice)))
	}
	if len(params.RoomTypes) > 0 {
		types := make([]string, 0, len(params.RoomTypes))
		for _, rt := range params.RoomTypes {
			types = append(types, string(rt))
		}
		conds = append(conds, fmt.Sprintf("room_type = ANY($%d)", arg(types)))
	}
	if params.MinCapacity > 0 {
		conds = append(conds, fmt.Sprintf("capacity >= $%d", arg(params.MinCapacity)))
	}
	if len(params.Amenities) > 0 {
		conds = append(conds, fmt.Sprintf("amenities @> $%d::integer[]", arg(params.Amenities)))
	}
	if params.Furnished != nil {
		conds = append(conds, fmt.Sprintf("COALESCE((features->>'%s')::boolean, false) = $%d", domainhostels.FeatureFurnished, arg(*params.Furnished)))
	}
	if params.VerifiedOnly {
		conds = append(conds, "is_verified")
	}
	if params.FeaturedOnly {
		conds = append(conds, "is_featured")
	}
	if params.Near != nil {
		conds = append(conds, "latitude IS NOT NULL AND longitude IS NOT NULL")
	}
	return whereClause(conds), args
}

// searchOrder mirrors SortHostels: ties fall back to newest first, then id.
// queryArg is the placeholder holding the relevance pattern, or zero.
func searchOrder(params domainhostels.SearchParams, queryArg int) string {
	const tie = `created_at DESC, id COLLATE "C"`
	switch params.Sort {
	case domainhostels.SortPriceAsc:
		return "price_amount ASC, " + tie
	case domainhostels.SortPriceDesc:
		return "price_amount DESC, " + tie
	case domainhostels.SortRating:
		return "rating DESC, " + tie
	case domainhostels.SortRelevance:
		if queryArg > 0 {
			return fmt.Sprintf(`CASE WHEN lower(name) LIKE $%[1]d THEN 3 WHEN lower(location) LIKE $%[1]d THEN 2 WHEN lower(description) LIKE $%[1]d THEN 1 ELSE 0 END DESC, `, queryArg) + tie
		}
	}
	return tie
}

func (r hostelRepo) Counts(ctx context.Context) (domainhostels.Counts, error) {
	var counts domainhostels.Counts
	err := r.q.QueryRow(ctx, `
		SELECT count(*), count(*) FILTER (WHERE is_verified), count(*) FILTER (WHERE is_featured) FROM hostels
	`).Scan(&counts.Total, &counts.Verified, &counts.Featured)
	return counts, err
}

func (r hostelRepo) Suggest(ctx context.Context, query string, limit int) ([]string, error) {
	pattern := likePattern(strings.ToLower(strings.TrimSpace(query)))
	rows, err := r.q.Query(ctx, `
		SELECT value FROM (
			SELECT name AS value FROM hostels
			UNION
			SELECT location FROM hostels
		) candidates
		WHERE lower(value) LIKE $1
		ORDER BY value COLLATE "C"
		LIMIT $2
	`, pattern, limitArg(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, rows.Err()
}

func (r hostelRepo) PopularLocations(ctx context.Context, limit int) ([]domainhostels.LocationCount, error) {
	rows, err := r.q.Query(ctx, `
		SELECT location, count(*) AS n FROM hostels
		GROUP BY location
		ORDER BY n DESC, location COLLATE "C"
		LIMIT $1
	`, limitArg(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domainhostels.LocationCount{}
	for rows.Next() {
		var lc domainhostels.LocationCount
		if err := rows.Scan(&lc.Location, &lc.Count); err != nil {
			return nil, err
		}
		out = append(out, lc)
	}
	return out, rows.Err()
}

func (r hostelRepo) PriceStats(ctx context.Context) (domainhostels.PriceStats, error) {
	var stats domainhostels.PriceStats
	err := r.q.QueryRow(ctx, `
		SELECT count(*), COALESCE(min(price_amount), 0), COALESCE(max(price_amount), 0),
			COALESCE(avg(price_amount)::double precision, 0), COALESCE(min(currency), '')
		FROM hostels
	`).Scan(&stats.Count, &stats.Min, &stats.Max, &stats.Average, &stats.Currency)
	return stats, err
}

func (r hostelRepo) AmenityIDs(ctx context.Context) ([]int, error) {
	rows, err := r.q.Query(ctx, `SELECT DISTINCT unnest(amenities) AS amenity FROM hostels ORDER BY amenity`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func scanHostel(row pgx.Row) (*domainhostels.Hostel, error) {
	var (
		hostel   domainhostels.Hostel
		lat, lng *float64
	)
	err := row.Scan(
		&hostel.ID,
		&hostel.LandlordID,
		&hostel.Name,
		&hostel.Location,
		&hostel.Description,
		&hostel.Price.Amount,
		&hostel.Price.Currency,
		&hostel.Capacity,
		&hostel.RoomType,
		&hostel.Amenities,
		&hostel.Images,
		&lat,
		&lng,
		&hostel.Features,
		&hostel.Verified,
		&hostel.Featured,
		&hostel.Rating,
		&hostel.ReviewCount,
		&hostel.CreatedAt,
		&hostel.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lat != nil && lng != nil {
		hostel.Coordinates = &domainhostels.Coordinates{Lat: *lat, Lng: *lng}
	}
	hostel.CreatedAt = utc(hostel.CreatedAt)
	hostel.UpdatedAt = utc(hostel.UpdatedAt)
	return &hostel, nil
}
