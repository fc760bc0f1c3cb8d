package controllers

import (
	"encoding/binary"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"zone_dispatch/internal/allocator"
	"zone_dispatch/internal/config"
	"zone_dispatch/internal/models"

	"github.com/twpayne/go-geom"
	gjson "github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"
)

// RouteResponse mirrors models.Route with the boundary rendered as GeoJSON
type RouteResponse struct {
	ID        uint           `json:"ID"`
	CreatedAt time.Time      `json:"CreatedAt"`
	UpdatedAt time.Time      `json:"UpdatedAt"`
	DeletedAt gorm.DeletedAt `json:"DeletedAt,omitempty"`
	CityID    uint           `json:"city_id"`
	Name      string         `json:"name"`
	RangeMin  int            `json:"range_min"`
	RangeMax  int            `json:"range_max"`
	Capacity  int            `json:"capacity"`
	Status    string         `json:"status"`
	Boundary  string         `json:"boundary,omitempty"`
}

func toRouteResponse(route models.Route) RouteResponse {
	jsonBoundary, _ := convertWKBToGeoJSON(route.Boundary)
	return RouteResponse{
		ID:        route.ID,
		CreatedAt: route.CreatedAt,
		UpdatedAt: route.UpdatedAt,
		DeletedAt: route.DeletedAt,
		CityID:    route.CityID,
		Name:      route.Name,
		RangeMin:  route.RangeMin,
		RangeMax:  route.RangeMax,
		Capacity:  route.Capacity(),
		Status:    route.Status,
		Boundary:  jsonBoundary,
	}
}

// parseAndConvertBoundary parses a GeoJSON string into a geom.T and returns WKB bytes
func parseAndConvertBoundary(raw string) ([]byte, error) {
	if raw == "" {
		return nil, nil
	}
	var g geom.T
	err := gjson.Unmarshal([]byte(raw), &g)
	if err != nil {
		return nil, err
	}
	return wkb.Marshal(g, binary.LittleEndian)
}

// convertWKBToGeoJSON converts WKB bytes into a GeoJSON string
func convertWKBToGeoJSON(wkbBytes []byte) (string, error) {
	if len(wkbBytes) == 0 {
		return "", nil
	}
	g, err := wkb.Unmarshal(wkbBytes)
	if err != nil {
		return "", err
	}
	b, err := gjson.Marshal(g)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CreateRoute creates a new delivery zone. The capacity interval is checked
// for overlap against every active route; a conflict response names the
// clashing route and suggests the nearest free range.
func CreateRoute(c *gin.Context) {
	var input struct {
		CityID   uint   `json:"city_id" binding:"required"`
		Name     string `json:"name" binding:"required"`
		RangeMin int    `json:"range_min"`
		RangeMax int    `json:"range_max"`
		Boundary string `json:"boundary"` // GeoJSON polygon
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("CreateRoute: invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	wkbBoundary, err := parseAndConvertBoundary(input.Boundary)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid boundary: " + err.Error()})
		return
	}

	route, err := svc().CreateRoute(c.Request.Context(), allocator.CreateRouteInput{
		CityID:   input.CityID,
		Name:     input.Name,
		RangeMin: input.RangeMin,
		RangeMax: input.RangeMax,
		Boundary: wkbBoundary,
	})
	if err != nil {
		renderAllocatorError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"route": toRouteResponse(*route)})
}

// ListRoutes returns all routes, optionally filtered by city or status
func ListRoutes(c *gin.Context) {
	q := config.DB.Model(&models.Route{})
	if cityID := c.Query("city_id"); cityID != "" {
		q = q.Where("city_id = ?", cityID)
	}
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var routes []models.Route
	if err := q.Order("range_min").Find(&routes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch routes"})
		return
	}

	var routeResponses []RouteResponse
	for _, r := range routes {
		routeResponses = append(routeResponses, toRouteResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"routes": routeResponses})
}

// GetRoute returns a single route with its active assignment count
func GetRoute(c *gin.Context) {
	rID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route ID"})
		return
	}

	var route models.Route
	if err := config.DB.First(&route, rID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
		return
	}

	var used int64
	config.DB.Model(&models.Assignment{}).
		Where("route_id = ? AND status = ?", route.ID, models.AssignmentStatusActive).
		Count(&used)

	c.JSON(http.StatusOK, gin.H{
		"route": toRouteResponse(route),
		"used":  used,
		"free":  int64(route.Capacity()) - used,
	})
}

// UpdateRoute applies a partial update. Changing the capacity interval
// re-runs the overlap check and rejects shrinks that strand active slots.
func UpdateRoute(c *gin.Context) {
	rID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		logrus.WithError(err).Warn("UpdateRoute: Invalid route ID in parameter")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route ID"})
		return
	}

	var input struct {
		Name     *string `json:"name"`
		CityID   *uint   `json:"city_id"`
		RangeMin *int    `json:"range_min"`
		RangeMax *int    `json:"range_max"`
		Boundary *string `json:"boundary"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("UpdateRoute: Invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	patch := allocator.RoutePatch{
		Name:     input.Name,
		CityID:   input.CityID,
		RangeMin: input.RangeMin,
		RangeMax: input.RangeMax,
	}
	if input.Boundary != nil {
		wkbBoundary, err := parseAndConvertBoundary(*input.Boundary)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid boundary: " + err.Error()})
			return
		}
		patch.Boundary = wkbBoundary
	}

	route, err := svc().UpdateRoute(c.Request.Context(), uint(rID), patch)
	if err != nil {
		renderAllocatorError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"route": toRouteResponse(*route)})
}

// SetRouteStatus activates or deactivates a route. Activation re-validates
// the interval against the current active set.
func SetRouteStatus(c *gin.Context) {
	rID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route ID"})
		return
	}

	var input struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	route, err := svc().SetRouteStatus(c.Request.Context(), uint(rID), input.Status)
	if err != nil {
		renderAllocatorError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"route": toRouteResponse(*route)})
}

// DeleteRoute removes a route with no active customers
func DeleteRoute(c *gin.Context) {
	rID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route ID"})
		return
	}

	if err := svc().DeleteRoute(c.Request.Context(), uint(rID)); err != nil {
		renderAllocatorError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Route deleted successfully"})
}

// SuggestRange returns the first free capacity interval of the requested
// size. Advisory only; nothing is reserved.
func SuggestRange(c *gin.Context) {
	size, err := strconv.Atoi(c.DefaultQuery("size", "1"))
	if err != nil || size < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "size must be a positive integer"})
		return
	}

	span, err := svc().SuggestSpan(c.Request.Context(), size, 0)
	if err != nil {
		renderAllocatorError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggested_range": span})
}
