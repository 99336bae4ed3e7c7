package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"hostelhunt/internal/app/dto"
	hostelsapp "hostelhunt/internal/app/handlers/hostels"
	"hostelhunt/internal/app/queries"
)

type SearchHTTP interface {
	Hostels(c *gin.Context)
	Suggestions(c *gin.Context)
	PopularLocations(c *gin.Context)
	PriceRanges(c *gin.Context)
	Filters(c *gin.Context)
}

type SearchHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h SearchHandler) Hostels(c *gin.Context) {
	result, err := queries.Ask[hostelsapp.SearchHostelsQuery, dto.HostelPage](c.Request.Context(), h.Queries, searchQueryFrom(c))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h SearchHandler) Suggestions(c *gin.Context) {
	query := hostelsapp.SuggestionsQuery{Query: c.Query("q"), Limit: parseInt(c.Query("limit"))}
	result, err := queries.Ask[hostelsapp.SuggestionsQuery, []string](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": result})
}

func (h SearchHandler) PopularLocations(c *gin.Context) {
	query := hostelsapp.PopularLocationsQuery{Limit: parseInt(c.Query("limit"))}
	result, err := queries.Ask[hostelsapp.PopularLocationsQuery, []dto.LocationCount](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"locations": result})
}

func (h SearchHandler) PriceRanges(c *gin.Context) {
	result, err := queries.Ask[hostelsapp.PriceRangesQuery, dto.PriceRanges](c.Request.Context(), h.Queries, hostelsapp.PriceRangesQuery{})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h SearchHandler) Filters(c *gin.Context) {
	result, err := queries.Ask[hostelsapp.FilterOptionsQuery, dto.FilterOptions](c.Request.Context(), h.Queries, hostelsapp.FilterOptionsQuery{})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ SearchHTTP = (*SearchHandler)(nil)
