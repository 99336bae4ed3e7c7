package ginserver

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"hostelhunt/internal/app/commands"
	"hostelhunt/internal/app/dto"
	hostelsapp "hostelhunt/internal/app/handlers/hostels"
	"hostelhunt/internal/app/queries"
	domainhostels "hostelhunt/internal/domain/hostels"
)

type HostelsHTTP interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
	UploadImage(c *gin.Context)
}

type HostelsHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type coordinatesRequest struct {
	Latitude  float64 `json:"latitude" binding:"min=-90,max=90"`
	Longitude float64 `json:"longitude" binding:"min=-180,max=180"`
}

type createHostelRequest struct {
	Name        string              `json:"name" binding:"required,min=2,max=200"`
	Location    string              `json:"location" binding:"required,min=2,max=200"`
	Description string              `json:"description" binding:"required,min=10,max=2000"`
	Price       float64             `json:"price" binding:"gte=0"`
	Currency    string              `json:"currency" binding:"omitempty,len=3"`
	Capacity    int                 `json:"capacity" binding:"required,min=1,max=1000"`
	RoomType    string              `json:"room_type" binding:"required"`
	Amenities   []int               `json:"amenities" binding:"max=50"`
	Images      []string            `json:"images" binding:"max=20"`
	Coordinates *coordinatesRequest `json:"coordinates"`
	Features    map[string]bool     `json:"features"`
}

type updateHostelRequest struct {
	Name        *string             `json:"name" binding:"omitempty,min=2,max=200"`
	Location    *string             `json:"location" binding:"omitempty,min=2,max=200"`
	Description *string             `json:"description" binding:"omitempty,min=10,max=2000"`
	Price       *float64            `json:"price" binding:"omitempty,gte=0"`
	Capacity    *int                `json:"capacity" binding:"omitempty,min=1,max=1000"`
	RoomType    *string             `json:"room_type"`
	Amenities   []int               `json:"amenities" binding:"omitempty,max=50"`
	Images      []string            `json:"images" binding:"omitempty,max=20"`
	Coordinates *coordinatesRequest `json:"coordinates"`
	Features    map[string]bool     `json:"features"`
}

func (h HostelsHandler) List(c *gin.Context) {
	query := searchQueryFrom(c)
	result, err := queries.Ask[hostelsapp.SearchHostelsQuery, dto.HostelPage](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h HostelsHandler) Create(c *gin.Context) {
	var req createHostelRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	cmd := hostelsapp.CreateHostelCommand{
		Actor:       actorOf(c),
		Name:        req.Name,
		Location:    req.Location,
		Description: req.Description,
		Price:       req.Price,
		Currency:    req.Currency,
		Capacity:    req.Capacity,
		RoomType:    req.RoomType,
		Amenities:   req.Amenities,
		Images:      req.Images,
		Features:    req.Features,
		Now:         time.Now().UTC(),
	}
	if req.Coordinates != nil {
		cmd.Latitude, cmd.Longitude = &req.Coordinates.Latitude, &req.Coordinates.Longitude
	}
	hostel, err := commands.Dispatch[hostelsapp.CreateHostelCommand, dto.Hostel](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Header("Location", fmt.Sprintf("/api/v1/hostels/%s", hostel.ID))
	c.JSON(http.StatusCreated, hostel)
}

func (h HostelsHandler) Get(c *gin.Context) {
	query := hostelsapp.GetHostelQuery{HostelID: domainhostels.ID(c.Param("id"))}
	detail, err := queries.Ask[hostelsapp.GetHostelQuery, dto.HostelDetail](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h HostelsHandler) Update(c *gin.Context) {
	var req updateHostelRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	cmd := hostelsapp.UpdateHostelCommand{
		Actor:       actorOf(c),
		HostelID:    domainhostels.ID(c.Param("id")),
		Name:        req.Name,
		Location:    req.Location,
		Description: req.Description,
		Price:       req.Price,
		Capacity:    req.Capacity,
		RoomType:    req.RoomType,
		Amenities:   req.Amenities,
		Images:      req.Images,
		Features:    req.Features,
		Now:         time.Now().UTC(),
	}
	if req.Coordinates != nil {
		cmd.Latitude, cmd.Longitude = &req.Coordinates.Latitude, &req.Coordinates.Longitude
	}
	hostel, err := commands.Dispatch[hostelsapp.UpdateHostelCommand, dto.Hostel](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, hostel)
}

func (h HostelsHandler) Delete(c *gin.Context) {
	cmd := hostelsapp.DeleteHostelCommand{Actor: actorOf(c), HostelID: domainhostels.ID(c.Param("id"))}
	if _, err := commands.Dispatch[hostelsapp.DeleteHostelCommand, struct{}](c.Request.Context(), h.Commands, cmd); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Hostel deleted successfully"})
}

func (h HostelsHandler) UploadImage(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, h.Logger, fmt.Errorf("%w: file is required", errBadRequest))
		return
	}
	if fileHeader.Size > hostelsapp.MaxImageBytes {
		respondError(c, h.Logger, hostelsapp.ErrImageTooLarge)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, h.Logger, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, hostelsapp.MaxImageBytes+1))
	if err != nil {
		respondError(c, h.Logger, fmt.Errorf("read upload: %w", err))
		return
	}
	if len(data) == 0 {
		respondError(c, h.Logger, fmt.Errorf("%w: file is empty", errBadRequest))
		return
	}
	cmd := hostelsapp.UploadHostelImageCommand{
		Actor:       actorOf(c),
		HostelID:    domainhostels.ID(c.Param("id")),
		Filename:    fileHeader.Filename,
		ContentType: http.DetectContentType(data),
		Size:        int64(len(data)),
		Reader:      bytes.NewReader(data),
		Now:         time.Now().UTC(),
	}
	hostel, err := commands.Dispatch[hostelsapp.UploadHostelImageCommand, dto.Hostel](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		if errors.Is(err, hostelsapp.ErrUnsupportedImage) && h.Logger != nil {
			h.Logger.Info("rejected hostel image", "content_type", cmd.ContentType)
		}
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, hostel)
}

func searchQueryFrom(c *gin.Context) hostelsapp.SearchHostelsQuery {
	page, perPage := pageParams(c)
	query := hostelsapp.SearchHostelsQuery{
		Location:     strings.TrimSpace(c.Query("location")),
		Query:        strings.TrimSpace(c.DefaultQuery("q", c.Query("query"))),
		MinPrice:     parseFloat(c.Query("min_price")),
		MaxPrice:     parseFloat(c.Query("max_price")),
		RoomTypes:    c.QueryArray("room_type"),
		MinCapacity:  parseInt(c.DefaultQuery("min_capacity", c.Query("capacity"))),
		Amenities:    parseIntList(c.QueryArray("amenities")),
		Furnished:    parseOptionalBool(c.Query("furnished")),
		VerifiedOnly: parseBool(c.Query("verified")),
		FeaturedOnly: parseBool(c.Query("featured")),
		Latitude:     parseOptionalFloat(c.Query("latitude")),
		Longitude:    parseOptionalFloat(c.Query("longitude")),
		RadiusKm:     parseFloat(c.Query("radius_km")),
		SortBy:       strings.TrimSpace(c.Query("sort_by")),
		Page:         page,
		PerPage:      perPage,
	}
	return query
}

var _ HostelsHTTP = (*HostelsHandler)(nil)
