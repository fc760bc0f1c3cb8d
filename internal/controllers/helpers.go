package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"zone_dispatch/internal/allocator"
	"zone_dispatch/internal/config"
	"zone_dispatch/internal/repository"
)

// svc builds the allocation service over the global DB handle. The service
// itself is stateless; every request gets a fresh wrapper.
func svc() *allocator.Service {
	return allocator.New(repository.NewGormStore(config.DB))
}

func statusForKind(kind allocator.Kind) int {
	switch kind {
	case allocator.KindValidation:
		return http.StatusBadRequest
	case allocator.KindRouteNotFound:
		return http.StatusNotFound
	case allocator.KindRouteInactive,
		allocator.KindCityMismatch,
		allocator.KindRouteOverlap,
		allocator.KindHasDependents,
		allocator.KindNothingToAssign:
		return http.StatusConflict
	case allocator.KindCapacityExhausted, allocator.KindCapacityExceeded:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// renderAllocatorError maps a service failure to an HTTP response carrying
// the machine-readable kind and whatever diagnostics the failure produced.
func renderAllocatorError(c *gin.Context, err error) {
	ae := allocator.AsError(err)
	if ae == nil {
		logrus.WithError(err).Error("unexpected store failure")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	body := gin.H{"kind": ae.Kind, "error": ae.Message}
	if ae.ConflictRoute != nil {
		body["conflict_route_id"] = ae.ConflictRoute.ID
		body["conflict_route_name"] = ae.ConflictRoute.Name
	}
	if ae.Suggestion != nil {
		body["suggested_range"] = ae.Suggestion
	}
	if ae.Counts != nil {
		body["counts"] = ae.Counts
	}
	c.JSON(statusForKind(ae.Kind), body)
}
