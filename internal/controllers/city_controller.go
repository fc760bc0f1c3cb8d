package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"zone_dispatch/internal/config"
	"zone_dispatch/internal/models"
)

// CreateCity registers a new operating city
func CreateCity(c *gin.Context) {
	var input models.City
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := config.DB.Create(&input).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "a city with that name already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create city: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"city": input})
}

// GetCity retrieves a City by ID
func GetCity(c *gin.Context) {
	id := c.Param("id")
	var city models.City
	if err := config.DB.Preload("Routes").First(&city, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "City not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"city": city})
}

// ListCities lists all Cities
func ListCities(c *gin.Context) {
	var cities []models.City
	if err := config.DB.Find(&cities).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch cities"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cities": cities})
}

// UpdateCity modifies an existing City
func UpdateCity(c *gin.Context) {
	id := c.Param("id")
	var city models.City
	if err := config.DB.First(&city, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "City not found"})
		return
	}

	var input struct {
		Name   *string `json:"name"`
		Region *string `json:"region"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.Name != nil {
		city.Name = *input.Name
	}
	if input.Region != nil {
		city.Region = *input.Region
	}

	if err := config.DB.Save(&city).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "a city with that name already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Update failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"city": city})
}

// DeleteCity removes a City that owns no routes
func DeleteCity(c *gin.Context) {
	id := c.Param("id")
	var count int64
	config.DB.Model(&models.Route{}).Where("city_id = ?", id).Count(&count)
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{
			"kind":  "has_dependents",
			"error": "city still owns routes; delete or reassign them first",
		})
		return
	}
	if err := config.DB.Delete(&models.City{}, id).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete city"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "City deleted"})
}
