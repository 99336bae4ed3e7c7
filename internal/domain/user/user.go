package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"hostelhunt/internal/domain/shared/events"
)

var (
	ErrIDRequired          = errors.New("user: id is required")
	ErrEmailRequired       = errors.New("user: email is required")
	ErrInvalidEmail        = errors.New("user: email is invalid")
	ErrPasswordHashMissing = errors.New("user: password hash is required")
	ErrInvalidRole         = errors.New("user: invalid role")
	ErrRoleTransition      = errors.New("user: role transition not allowed")
	ErrEmailAlreadyUsed    = errors.New("user: email already used")
	ErrNotFound            = errors.New("user: not found")
	ErrInactive            = errors.New("user: account is deactivated")
)

type ID string

type Role string

const (
	RoleStudent  Role = "student"
	RoleLandlord Role = "landlord"
	RoleAdmin    Role = "admin"
)

// ParseRole maps raw input onto a known role.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleStudent:
		return RoleStudent, nil
	case RoleLandlord:
		return RoleLandlord, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", ErrInvalidRole
	}
}

type User struct {
	ID            ID
	Email         string
	Name          string
	PasswordHash  string
	PhoneNumber   string
	ProfileImage  string
	Role          Role
	Active        bool
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	events.EventRecorder
}

type ListParams struct {
	Role          Role
	Active        *bool
	EmailVerified *bool
	Query         string
	Limit         int
	Offset        int
}

type Counts struct {
	Total    int
	Active   int
	Verified int
	ByRole   map[Role]int
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	Save(ctx context.Context, user *User) error
	List(ctx context.Context, params ListParams) ([]*User, int, error)
	Counts(ctx context.Context) (Counts, error)
}

type CreateParams struct {
	ID           ID
	Email        string
	Name         string
	PasswordHash string
	PhoneNumber  string
	CreatedAt    time.Time
}

// NewUser registers a student account.
func NewUser(params CreateParams) (*User, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrIDRequired
	}
	email := NormalizeEmail(params.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	if strings.TrimSpace(params.PasswordHash) == "" {
		return nil, ErrPasswordHashMissing
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		name = email[:strings.Index(email, "@")]
	}

	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	u := &User{
		ID:           ID(id),
		Email:        email,
		Name:         name,
		PasswordHash: params.PasswordHash,
		PhoneNumber:  strings.TrimSpace(params.PhoneNumber),
		Role:         RoleStudent,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	u.Record(Registered{UserID: u.ID, Email: u.Email, Name: u.Name, At: now})
	return u, nil
}

// ProfileUpdate carries optional profile fields; nil means unchanged.
type ProfileUpdate struct {
	Name         *string
	PhoneNumber  *string
	ProfileImage *string
}

func (u *User) UpdateProfile(update ProfileUpdate, now time.Time) {
	if update.Name != nil {
		if name := strings.TrimSpace(*update.Name); name != "" {
			u.Name = name
		}
	}
	if update.PhoneNumber != nil {
		u.PhoneNumber = strings.TrimSpace(*update.PhoneNumber)
	}
	if update.ProfileImage != nil {
		u.ProfileImage = strings.TrimSpace(*update.ProfileImage)
	}
	u.touch(now)
}

func (u *User) SetPasswordHash(hash string, now time.Time) error {
	if strings.TrimSpace(hash) == "" {
		return ErrPasswordHashMissing
	}
	u.PasswordHash = hash
	u.touch(now)
	return nil
}

// BecomeLandlord performs the self-service student → landlord upgrade.
func (u *User) BecomeLandlord(now time.Time) error {
	switch u.Role {
	case RoleLandlord:
		return nil
	case RoleStudent:
	default:
		return ErrRoleTransition
	}
	return u.setRole(RoleLandlord, now)
}

// ChangeRole is the privileged path used by administrators.
func (u *User) ChangeRole(role Role, now time.Time) error {
	parsed, err := ParseRole(string(role))
	if err != nil {
		return err
	}
	if parsed == u.Role {
		return nil
	}
	return u.setRole(parsed, now)
}

func (u *User) setRole(role Role, now time.Time) error {
	from := u.Role
	u.Role = role
	u.touch(now)
	u.Record(RoleChanged{UserID: u.ID, From: from, To: role, At: u.UpdatedAt})
	return nil
}

func (u *User) Deactivate(now time.Time) {
	if !u.Active {
		return
	}
	u.Active = false
	u.touch(now)
	u.Record(Deactivated{UserID: u.ID, At: u.UpdatedAt})
}

func (u *User) Activate(now time.Time) {
	if u.Active {
		return
	}
	u.Active = true
	u.touch(now)
}

func (u *User) VerifyEmail(now time.Time) {
	if u.EmailVerified {
		return
	}
	u.EmailVerified = true
	u.touch(now)
}

// RequestPasswordReset records the intent; the reset link is issued by the mailer.
func (u *User) RequestPasswordReset(now time.Time) {
	u.Record(PasswordResetRequested{UserID: u.ID, At: now.UTC()})
}

func (u *User) EnsureActive() error {
	if !u.Active {
		return ErrInactive
	}
	return nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) touch(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	u.UpdatedAt = now.UTC()
}

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
