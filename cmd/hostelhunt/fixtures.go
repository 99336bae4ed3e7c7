package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"hostelhunt/internal/app/uow"
	domainhostels "hostelhunt/internal/domain/hostels"
	"hostelhunt/internal/domain/shared/money"
	domainuser "hostelhunt/internal/domain/user"
	"hostelhunt/internal/infra/security"
)

type fixtureFile struct {
	Landlords []landlordFixture `json:"landlords"`
}

type landlordFixture struct {
	Email        string          `json:"email"`
	Name         string          `json:"name"`
	Password     string          `json:"password"`
	Phone        string          `json:"phone"`
	BusinessName string          `json:"business_name"`
	Hostels      []hostelFixture `json:"hostels"`
}

type hostelFixture struct {
	Name        string   `json:"name"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Capacity    int      `json:"capacity"`
	RoomType    string   `json:"room_type"`
	Amenities   []int    `json:"amenities"`
	Images      []string `json:"images"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
	Furnished   bool     `json:"furnished"`
	Verified    bool     `json:"verified"`
	Featured    bool     `json:"featured"`
}

// fixturesPath honours HOSTEL_FIXTURES and otherwise looks for data/hostels.json.
func fixturesPath() string {
	if path := os.Getenv("HOSTEL_FIXTURES"); path != "" {
		return path
	}
	candidate := filepath.Join("data", "hostels.json")
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}

// loadHostelFixtures seeds demo landlords and their hostels. Landlords whose
// email already exists are skipped, so restarts against a database are safe.
func loadHostelFixtures(ctx context.Context, factory uow.UoWFactory, path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("hostel fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	var file fixtureFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}
	hasher := security.BcryptHasher{}
	now := time.Now().UTC()
	for _, fx := range file.Landlords {
		if err := seedLandlord(ctx, factory, hasher, fx, now); err != nil {
			logger.Error("fixture landlord skipped", "email", fx.Email, "error", err)
			continue
		}
		logger.Info("landlord fixture imported", "email", fx.Email, "hostels", len(fx.Hostels))
	}
	return nil
}

func seedLandlord(ctx context.Context, factory uow.UoWFactory, hasher security.BcryptHasher, fx landlordFixture, now time.Time) error {
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return err
	}
	defer unit.Rollback(ctx)

	if _, err := unit.Users().ByEmail(ctx, fx.Email); err == nil {
		return nil
	} else if !errors.Is(err, domainuser.ErrNotFound) {
		return err
	}
	hash, err := hasher.Hash(fx.Password)
	if err != nil {
		return err
	}
	owner, err := domainuser.NewUser(domainuser.CreateParams{
		ID:           domainuser.ID(uuid.NewString()),
		Email:        fx.Email,
		Name:         fx.Name,
		PasswordHash: hash,
		PhoneNumber:  fx.Phone,
		CreatedAt:    now,
	})
	if err != nil {
		return err
	}
	if err := owner.BecomeLandlord(now); err != nil {
		return err
	}
	owner.VerifyEmail(now)
	owner.ClearEvents()
	landlord, err := domainuser.NewLandlord(domainuser.LandlordParams{
		ID:           domainuser.LandlordID(uuid.NewString()),
		Owner:        owner,
		BusinessName: fx.BusinessName,
		ContactPhone: fx.Phone,
		ContactEmail: fx.Email,
		CreatedAt:    now,
	})
	if err != nil {
		return err
	}
	if err := unit.Users().Save(ctx, owner); err != nil {
		return err
	}
	if err := unit.Landlords().Save(ctx, landlord); err != nil {
		return err
	}

	for _, hf := range fx.Hostels {
		hostel, err := fixtureHostel(landlord.ID, hf, now)
		if err != nil {
			return fmt.Errorf("hostel %q: %w", hf.Name, err)
		}
		if err := unit.Hostels().Save(ctx, hostel); err != nil {
			return err
		}
	}
	return unit.Commit(ctx)
}

func fixtureHostel(landlordID domainuser.LandlordID, hf hostelFixture, now time.Time) (*domainhostels.Hostel, error) {
	price, err := money.FromMajor(hf.Price, money.DefaultCurrency)
	if err != nil {
		return nil, err
	}
	roomType, err := domainhostels.ParseRoomType(hf.RoomType)
	if err != nil {
		return nil, err
	}
	var coords *domainhostels.Coordinates
	if hf.Lat != nil && hf.Lng != nil {
		coords = &domainhostels.Coordinates{Lat: *hf.Lat, Lng: *hf.Lng}
	}
	hostel, err := domainhostels.New(domainhostels.CreateParams{
		ID:          domainhostels.ID(uuid.NewString()),
		LandlordID:  landlordID,
		Name:        hf.Name,
		Location:    hf.Location,
		Description: hf.Description,
		Price:       price,
		Capacity:    hf.Capacity,
		RoomType:    roomType,
		Amenities:   hf.Amenities,
		Images:      hf.Images,
		Coordinates: coords,
		Features:    map[string]bool{domainhostels.FeatureFurnished: hf.Furnished},
		Now:         now,
	})
	if err != nil {
		return nil, err
	}
	hostel.SetVerified(hf.Verified, now)
	hostel.SetFeatured(hf.Featured, now)
	hostel.ClearEvents()
	return hostel, nil
}
