package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/alpacaswillrule/BlueShark/internal/external"
	"github.com/alpacaswillrule/BlueShark/internal/service"
	"github.com/alpacaswillrule/BlueShark/pkg/models"
)

type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func RegisterRoutes(r *gin.Engine, h *Handler) {
	api := r.Group("/api")
	{
		api.GET("/locations", h.Locations)
		api.GET("/ratings/:location_id", h.Ratings)
		api.GET("/external-locations", h.ExternalLocations)
		api.GET("/debug/external-locations", h.DebugExternalLocations)
		api.POST("/refresh-external-data", h.RefreshExternalData)
		api.POST("/ratings", h.SubmitRating)
	}
}

// Locations: GET /api/locations?type&rating_min&radius&lat&lng&include_external
func (h *Handler) Locations(c *gin.Context) {
	f := service.Filter{Type: c.Query("type")}

	var err error
	if f.RatingMin, err = parseFloatDefault(c.Query("rating_min"), 0); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rating_min"})
		return
	}
	if f.RadiusKm, err = parseFloatDefault(c.Query("radius"), 0); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid radius"})
		return
	}
	f.IncludeExternal = c.DefaultQuery("include_external", "true") != "false"

	if latStr, lngStr := c.Query("lat"), c.Query("lng"); latStr != "" && lngStr != "" {
		lat, latErr := strconv.ParseFloat(latStr, 64)
		lng, lngErr := strconv.ParseFloat(lngStr, 64)
		if latErr != nil || lngErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lat/lng format"})
			return
		}
		f.Lat, f.Lng = &lat, &lng
	}

	locations, err := h.svc.Query(c.Request.Context(), f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, locations)
}

// Ratings: GET /api/ratings/:location_id
// Returns up to the 10 most recent ratings, newest first.
func (h *Handler) Ratings(c *gin.Context) {
	locationID := c.Param("location_id")
	ratings, err := h.svc.RecentRatings(c.Request.Context(), locationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ratings)
}

// ExternalLocations: GET /api/external-locations?lat&lng&radius
// Fetches fresh external data and kicks off a background sync to the store.
func (h *Handler) ExternalLocations(c *gin.Context) {
	latStr, lngStr := c.Query("lat"), c.Query("lng")
	if latStr == "" || lngStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "latitude and longitude are required"})
		return
	}
	lat, latErr := strconv.ParseFloat(latStr, 64)
	lng, lngErr := strconv.ParseFloat(lngStr, 64)
	if latErr != nil || lngErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid latitude or longitude format"})
		return
	}
	radius, err := parseFloatDefault(c.Query("radius"), 10)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid radius"})
		return
	}

	grouped := h.svc.ExternalLocations(c.Request.Context(), lat, lng, radius)
	flat := external.Flatten(grouped)

	go h.svc.SyncExternal(context.WithoutCancel(c.Request.Context()), flat)

	c.JSON(http.StatusOK, flat)
}

// DebugExternalLocations: GET /api/debug/external-locations?lat&lng&source
// Diagnostic dump of one source or a sample of all; never touches the store.
func (h *Handler) DebugExternalLocations(c *gin.Context) {
	lat, latErr := strconv.ParseFloat(c.DefaultQuery("lat", "42.3601"), 64)
	lng, lngErr := strconv.ParseFloat(c.DefaultQuery("lng", "-71.0589"), 64)
	if latErr != nil || lngErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid latitude or longitude format"})
		return
	}

	grouped := h.svc.ExternalLocations(c.Request.Context(), lat, lng, 0)

	if source := c.Query("source"); source != "" {
		name := debugSourceName(source)
		locations, ok := grouped[name]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown source: " + source})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"source":    name,
			"count":     len(locations),
			"locations": locations,
		})
		return
	}

	result := gin.H{}
	for name, locations := range grouped {
		sample := locations
		if len(sample) > 5 {
			sample = sample[:5]
		}
		result[name] = gin.H{"count": len(locations), "sample": sample}
	}
	c.JSON(http.StatusOK, result)
}

// RefreshExternalData: POST /api/refresh-external-data
// Starts a full aggregate-and-sync pass in the background.
func (h *Handler) RefreshExternalData(c *gin.Context) {
	go h.svc.RefreshAll(context.WithoutCancel(c.Request.Context()))
	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "External data refresh started",
	})
}

type submitRatingRequest struct {
	Rating        *models.Rating   `json:"rating"`
	IsNewLocation bool             `json:"isNewLocation"`
	LocationData  *models.Location `json:"locationData"`
}

// SubmitRating: POST /api/ratings
// Body: {rating, isNewLocation, locationData}
func (h *Handler) SubmitRating(c *gin.Context) {
	var req submitRatingRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}

	locationID, err := h.svc.SubmitRating(c.Request.Context(), req.Rating, req.IsNewLocation, req.LocationData)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "location_id": locationID})
}

// debugSourceName maps the short aliases the debug endpoint has always
// accepted onto the aggregator's source names.
func debugSourceName(source string) string {
	switch source {
	case "refuge":
		return external.SourceRefuge
	case "police":
		return external.SourcePolice
	}
	return source
}

func parseFloatDefault(s string, d float64) (float64, error) {
	if s == "" {
		return d, nil
	}
	return strconv.ParseFloat(s, 64)
}
