package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	domainuser "hostelhunt/internal/domain/user"
)

const userColumns = `id, email, name, password_hash, phone_number, profile_image, role, is_active, email_verified, created_at, updated_at`

type userRepo struct{ q querier }

func (r userRepo) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	row := r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	return user, notFound(err, domainuser.ErrNotFound)
}

func (r userRepo) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	row := r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, domainuser.NormalizeEmail(email))
	user, err := scanUser(row)
	return user, notFound(err, domainuser.ErrNotFound)
}

func (r userRepo) Save(ctx context.Context, user *domainuser.User) error {
	if user == nil || user.ID == "" {
		return domainuser.ErrIDRequired
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			password_hash = EXCLUDED.password_hash,
			phone_number = EXCLUDED.phone_number,
			profile_image = EXCLUDED.profile_image,
			role = EXCLUDED.role,
			is_active = EXCLUDED.is_active,
			email_verified = EXCLUDED.email_verified,
			updated_at = EXCLUDED.updated_at
	`, user.ID, domainuser.NormalizeEmail(user.Email), user.Name, user.PasswordHash, user.PhoneNumber,
		user.ProfileImage, user.Role, user.Active, user.EmailVerified, utc(user.CreatedAt), utc(user.UpdatedAt))
	if violates(err, codeUniqueViolation, "users_email_key") {
		return domainuser.ErrEmailAlreadyUsed
	}
	return err
}

func (r userRepo) List(ctx context.Context, params domainuser.ListParams) ([]*domainuser.User, int, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if params.Role != "" {
		add("role = $%d", params.Role)
	}
	if params.Active != nil {
		add("is_active = $%d", *params.Active)
	}
	if params.EmailVerified != nil {
		add("email_verified = $%d", *params.EmailVerified)
	}
	if query := strings.ToLower(strings.TrimSpace(params.Query)); query != "" {
		args = append(args, likePattern(query))
		n := len(args)
		conds = append(conds, fmt.Sprintf("(lower(name) LIKE $%d ESCAPE '\\' OR email LIKE $%d ESCAPE '\\')", n, n))
	}
	where := whereClause(conds)

	var total int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, limitArg(params.Limit), offsetArg(params.Offset))
	sql := fmt.Sprintf(`SELECT %s FROM users%s ORDER BY created_at DESC, id COLLATE "C" LIMIT $%d OFFSET $%d`,
		userColumns, where, len(args)-1, len(args))
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	users, err := collect(rows, scanUser)
	return users, total, err
}

func (r userRepo) Counts(ctx context.Context) (domainuser.Counts, error) {
	counts := domainuser.Counts{ByRole: make(map[domainuser.Role]int)}
	rows, err := r.q.Query(ctx, `
		SELECT role, count(*), count(*) FILTER (WHERE is_active), count(*) FILTER (WHERE email_verified)
		FROM users GROUP BY role
	`)
	if err != nil {
		return counts, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			role                    domainuser.Role
			total, active, verified int
		)
		if err := rows.Scan(&role, &total, &active, &verified); err != nil {
			return counts, err
		}
		counts.ByRole[role] = total
		counts.Total += total
		counts.Active += active
		counts.Verified += verified
	}
	return counts, rows.Err()
}

func scanUser(row pgx.Row) (*domainuser.User, error) {
	var user domainuser.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.PhoneNumber,
		&user.ProfileImage,
		&user.Role,
		&user.Active,
		&user.EmailVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.CreatedAt = utc(user.CreatedAt)
	user.UpdatedAt = utc(user.UpdatedAt)
	return &user, nil
}

const landlordColumns = `id, user_id, business_name, contact_phone, contact_email, address, description, rating, review_count, created_at, updated_at`

type landlordRepo struct{ q querier }

func (r landlordRepo) ByID(ctx context.Context, id domainuser.LandlordID) (*domainuser.Landlord, error) {
	row := r.q.QueryRow(ctx, `SELECT `+landlordColumns+` FROM landlords WHERE id = $1`, id)
	landlord, err := scanLandlord(row)
	return landlord, notFound(err, domainuser.ErrLandlordNotFound)
}

func (r landlordRepo) ByUserID(ctx context.Context, userID domainuser.ID) (*domainuser.Landlord, error) {
	row := r.q.QueryRow(ctx, `SELECT `+landlordColumns+` FROM landlords WHERE user_id = $1`, userID)
	landlord, err := scanLandlord(row)
	return landlord, notFound(err, domainuser.ErrLandlordNotFound)
}

func (r landlordRepo) Save(ctx context.Context, landlord *domainuser.Landlord) error {
	if landlord == nil || landlord.ID == "" {
		return domainuser.ErrIDRequired
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO landlords (`+landlordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			business_name = EXCLUDED.business_name,
			contact_phone = EXCLUDED.contact_phone,
			contact_email = EXCLUDED.contact_email,
			address = EXCLUDED.address,
			description = EXCLUDED.description,
			rating = EXCLUDED.rating,
			review_count = EXCLUDED.review_count,
			updated_at = EXCLUDED.updated_at
	`, landlord.ID, landlord.UserID, landlord.BusinessName, landlord.ContactPhone, landlord.ContactEmail,
		landlord.Address, landlord.Description, landlord.Rating, landlord.ReviewCount,
		utc(landlord.CreatedAt), utc(landlord.UpdatedAt))
	if violates(err, codeUniqueViolation, "landlords_user_id_key") {
		return domainuser.ErrLandlordExists
	}
	return err
}

func (r landlordRepo) Delete(ctx context.Context, id domainuser.LandlordID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM landlords WHERE id = $1`, id)
	switch {
	case violates(err, codeForeignKeyViolation, ""):
		return domainuser.ErrLandlordOwnsHostels
	case err != nil:
		return err
	case tag.RowsAffected() == 0:
		return domainuser.ErrLandlordNotFound
	}
	return nil
}

func scanLandlord(row pgx.Row) (*domainuser.Landlord, error) {
	var landlord domainuser.Landlord
	err := row.Scan(
		&landlord.ID,
		&landlord.UserID,
		&landlord.BusinessName,
		&landlord.ContactPhone,
		&landlord.ContactEmail,
		&landlord.Address,
		&landlord.Description,
		&landlord.Rating,
		&landlord.ReviewCount,
		&landlord.CreatedAt,
		&landlord.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	landlord.CreatedAt = utc(landlord.CreatedAt)
	landlord.UpdatedAt = utc(landlord.UpdatedAt)
	return &landlord, nil
}

// collect scans every row and closes rows.
func collect[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]*T, error) {
	defer rows.Close()
	out := []*T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// likePattern builds a substring LIKE pattern with wildcards in needle escaped.
func likePattern(needle string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(needle)
	return "%" + escaped + "%"
}
