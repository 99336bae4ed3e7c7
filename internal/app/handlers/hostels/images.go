package hostels

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"hostelhunt/internal/app/commands"
	"hostelhunt/internal/app/dto"
	"hostelhunt/internal/app/handlers/support"
	"hostelhunt/internal/app/policies"
	"hostelhunt/internal/app/uow"
	domainhostels "hostelhunt/internal/domain/hostels"
	domainuser "hostelhunt/internal/domain/user"
)

const uploadHostelImageKey = "hostels.images.upload"

// MaxImageBytes bounds a single uploaded image.
const MaxImageBytes = 5 << 20

var (
	ErrUploaderUnavailable = errors.New("hostels: image storage is not configured")
	ErrUnsupportedImage    = errors.New("hostels: only jpeg, png and webp images are accepted")
	ErrImageTooLarge       = errors.New("hostels: image exceeds 5MB")
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

type UploadHostelImageCommand struct {
	Actor       support.Actor
	HostelID    domainhostels.ID `validate:"required"`
	Filename    string
	ContentType string `validate:"required"`
	Size        int64
	Reader      io.Reader `validate:"required"`
	Now         time.Time
}

func (c UploadHostelImageCommand) Key() string                     { return uploadHostelImageKey }
func (c UploadHostelImageCommand) ActorRole() domainuser.Role      { return c.Actor.Role }
func (c UploadHostelImageCommand) AllowedRoles() []domainuser.Role { return landlordOnly }

type UploadHostelImageHandler struct {
	UoWFactory uow.UoWFactory
	Uploader   policies.Uploader
	Logger     *slog.Logger
}

func (h *UploadHostelImageHandler) Handle(ctx context.Context, cmd UploadHostelImageCommand) (dto.Hostel, error) {
	if h.Uploader == nil {
		return dto.Hostel{}, ErrUploaderUnavailable
	}
	contentType := strings.ToLower(strings.TrimSpace(cmd.ContentType))
	ext, ok := imageExtensions[contentType]
	if !ok {
		return dto.Hostel{}, ErrUnsupportedImage
	}
	if cmd.Size > MaxImageBytes {
		return dto.Hostel{}, ErrImageTooLarge
	}

	unit, ctx, err := support.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Hostel{}, err
	}
	defer unit.Release(ctx)

	hostel, err := ownedHostel(ctx, unit, cmd.Actor, cmd.HostelID)
	if err != nil {
		return dto.Hostel{}, err
	}
	objectKey := path.Join("hostels", string(hostel.ID), uuid.NewString()+ext)
	publicURL, err := h.Uploader.Upload(ctx, objectKey, io.LimitReader(cmd.Reader, MaxImageBytes), contentType)
	if err != nil {
		return dto.Hostel{}, fmt.Errorf("upload image: %w", err)
	}
	if err := hostel.AddImage(publicURL, support.Now(cmd.Now)); err != nil {
		return dto.Hostel{}, err
	}
	if err := unit.Hostels().Save(ctx, hostel); err != nil {
		return dto.Hostel{}, err
	}
	if err := unit.Commit(ctx); err != nil {
		return dto.Hostel{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("hostel image added", "hostel_id", hostel.ID, "object_key", objectKey, "filename", cmd.Filename)
	}
	return dto.MapHostel(hostel), nil
}

var _ commands.Handler[UploadHostelImageCommand, dto.Hostel] = (*UploadHostelImageHandler)(nil)
