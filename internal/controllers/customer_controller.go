package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"zone_dispatch/internal/config"
	"zone_dispatch/internal/models"
)

// CreateCustomer registers a new customer in a city
func CreateCustomer(c *gin.Context) {
	var input models.Customer
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid customer input: " + err.Error()})
		return
	}

	if input.CityID != 0 {
		var city models.City
		if err := config.DB.First(&city, input.CityID).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "city does not exist"})
			return
		}
	}

	if err := config.DB.Create(&input).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create customer: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"customer": input})
}

// GetCustomer retrieves a customer by ID
func GetCustomer(c *gin.Context) {
	id := c.Param("id")
	var customer models.Customer
	if err := config.DB.First(&customer, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Customer not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"customer": customer})
}

// ListCustomers returns customers with optional city filter, name search and
// page/limit pagination.
func ListCustomers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	q := config.DB.Model(&models.Customer{})
	if cityID := c.Query("city_id"); cityID != "" {
		q = q.Where("city_id = ?", cityID)
	}
	if name := c.Query("name"); name != "" {
		q = q.Where("name ILIKE ?", "%"+name+"%")
	}

	var total int64
	q.Count(&total)

	var customers []models.Customer
	if err := q.Order("id").Offset((page - 1) * limit).Limit(limit).Find(&customers).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching customers"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"customers": customers,
		"page":      page,
		"limit":     limit,
		"total":     total,
	})
}

// UpdateCustomer modifies an existing customer
func UpdateCustomer(c *gin.Context) {
	id := c.Param("id")
	var customer models.Customer
	if err := config.DB.First(&customer, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Customer not found"})
		return
	}

	var input struct {
		Name    *string `json:"name"`
		Phone   *string `json:"phone"`
		Address *string `json:"address"`
		CityID  *uint   `json:"city_id"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.Name != nil {
		customer.Name = *input.Name
	}
	if input.Phone != nil {
		customer.Phone = *input.Phone
	}
	if input.Address != nil {
		customer.Address = *input.Address
	}
	if input.CityID != nil {
		var city models.City
		if err := config.DB.First(&city, *input.CityID).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "city does not exist"})
			return
		}
		customer.CityID = *input.CityID
	}

	config.DB.Save(&customer)
	c.JSON(http.StatusOK, gin.H{"customer": customer})
}

// DeleteCustomer removes a customer without active assignments. Customers
// still attached to a route come back as a has_dependents conflict.
func DeleteCustomer(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid customer ID"})
		return
	}

	if err := svc().DeleteCustomer(c.Request.Context(), uint(id)); err != nil {
		renderAllocatorError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Customer deleted"})
}
