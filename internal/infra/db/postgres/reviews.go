package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	domainhostels "hostelhunt/internal/domain/hostels"
	domainreviews "hostelhunt/internal/domain/reviews"
	domainuser "hostelhunt/internal/domain/user"
)

const reviewColumns = `id, user_id, hostel_id, rating, comment, created_at, updated_at`

const reviewOrder = ` ORDER BY created_at DESC, id COLLATE "C"`

type reviewRepo struct{ q querier }

func (r reviewRepo) ByID(ctx context.Context, id domainreviews.ID) (*domainreviews.Review, error) {
	row := r.q.QueryRow(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id)
	review, err := scanReview(row)
	return review, notFound(err, domainreviews.ErrNotFound)
}

func (r reviewRepo) ByUserAndHostel(ctx context.Context, userID domainuser.ID, hostelID domainhostels.ID) (*domainreviews.Review, error) {
	row := r.q.QueryRow(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE user_id = $1 AND hostel_id = $2`, userID, hostelID)
	review, err := scanReview(row)
	return review, notFound(err, domainreviews.ErrNotFound)
}

func (r reviewRepo) Save(ctx context.Context, review *domainreviews.Review) error {
	if review == nil || review.ID == "" {
		return domainreviews.ErrNotFound
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO reviews (`+reviewColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			rating = EXCLUDED.rating,
			comment = EXCLUDED.comment,
			updated_at = EXCLUDED.updated_at
	`, review.ID, review.UserID, review.HostelID, review.Rating, review.Comment, utc(review.CreatedAt), utc(review.UpdatedAt))
	if violates(err, codeUniqueViolation, "reviews_user_hostel_key") {
		return domainreviews.ErrAlreadyReviewed
	}
	return err
}

func (r reviewRepo) Delete(ctx context.Context, id domainreviews.ID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainreviews.ErrNotFound
	}
	return nil
}

func (r reviewRepo) ListByHostel(ctx context.Context, hostelID domainhostels.ID, limit, offset int) ([]*domainreviews.Review, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM reviews WHERE hostel_id = $1`, hostelID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.q.Query(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE hostel_id = $1`+reviewOrder+` LIMIT $2 OFFSET $3`,
		hostelID, limitArg(limit), offsetArg(offset))
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanReview)
	return items, total, err
}

func (r reviewRepo) ListByUser(ctx context.Context, userID domainuser.ID) ([]*domainreviews.Review, error) {
	rows, err := r.q.Query(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE user_id = $1`+reviewOrder, userID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanReview)
}

func (r reviewRepo) SummaryByHostels(ctx context.Context, hostelIDs []domainhostels.ID) (domainreviews.Summary, error) {
	if len(hostelIDs) == 0 {
		return domainreviews.Summary{}, nil
	}
	ids := make([]string, 0, len(hostelIDs))
	for _, id := range hostelIDs {
		ids = append(ids, string(id))
	}
	return r.summary(ctx, `SELECT rating, count(*) FROM reviews WHERE hostel_id = ANY($1) GROUP BY rating`, ids)
}

func (r reviewRepo) SummaryAll(ctx context.Context) (domainreviews.Summary, error) {
	return r.summary(ctx, `SELECT rating, count(*) FROM reviews GROUP BY rating`)
}

func (r reviewRepo) summary(ctx context.Context, sql string, args ...any) (domainreviews.Summary, error) {
	var summary domainreviews.Summary
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return summary, err
	}
	defer rows.Close()
	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			return summary, err
		}
		for i := 0; i < count; i++ {
			summary.Add(rating)
		}
	}
	return summary, rows.Err()
}

func scanReview(row pgx.Row) (*domainreviews.Review, error) {
	var review domainreviews.Review
	err := row.Scan(
		&review.ID,
		&review.UserID,
		&review.HostelID,
		&review.Rating,
		&review.Comment,
		&review.CreatedAt,
		&review.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	review.CreatedAt = utc(review.CreatedAt)
	review.UpdatedAt = utc(review.UpdatedAt)
	return &review, nil
}
