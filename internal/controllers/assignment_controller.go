package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"zone_dispatch/internal/config"
	"zone_dispatch/internal/models"
)

// AssignCustomer attaches one customer to one route, moving it off any
// route it currently occupies. city_id, when given, requires the route to
// belong to that city.
func AssignCustomer(c *gin.Context) {
	var input struct {
		CustomerID uint `json:"customer_id" binding:"required"`
		RouteID    uint `json:"route_id" binding:"required"`
		CityID     uint `json:"city_id"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignment input: " + err.Error()})
		return
	}

	result, err := svc().AssignCustomer(c.Request.Context(), input.CustomerID, input.RouteID, input.CityID)
	if err != nil {
		renderAllocatorError(c, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"customer_id": result.CustomerID,
		"route_id":    result.RouteID,
		"slot":        result.Slot,
		"reused":      result.Reused,
	}).Debug("AssignCustomer: placed")

	c.JSON(http.StatusOK, gin.H{"assignment": result})
}

// UnassignCustomer detaches a customer from whatever route it occupies.
// Assignment rows are kept as inactive history.
func UnassignCustomer(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid customer ID"})
		return
	}

	if err := svc().UnassignCustomer(c.Request.Context(), uint(id)); err != nil {
		renderAllocatorError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Customer unassigned"})
}

// BulkAssign attaches a batch of customers to one route atomically. With
// reset set, all existing assignment rows for the route are cleared first,
// history included.
func BulkAssign(c *gin.Context) {
	rID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route ID"})
		return
	}

	var input struct {
		CustomerIDs []uint `json:"customer_ids" binding:"required"`
		Reset       bool   `json:"reset"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bulk input: " + err.Error()})
		return
	}

	result, err := svc().BulkAssign(c.Request.Context(), uint(rID), input.CustomerIDs, input.Reset)
	if err != nil {
		renderAllocatorError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}

// ListAssignments returns a route's assignments ordered by slot. By default
// only active rows; pass all=true to include history.
func ListAssignments(c *gin.Context) {
	rID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route ID"})
		return
	}

	q := config.DB.Where("route_id = ?", rID).Order("slot")
	if c.Query("all") != "true" {
		q = q.Where("status = ?", models.AssignmentStatusActive)
	}

	var rows []models.Assignment
	if err := q.Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching assignments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"assignments": rows})
}
