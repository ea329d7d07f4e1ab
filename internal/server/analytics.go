package server

import (
	"net/http"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/forecast"
	subscriptiondomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/subscription/domain"
)

func (s *Server) SubscriptionMRRAsOf(c *gin.Context) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		AbortWithError(c, newValidationError("id", "invalid_subscription_id", "invalid subscription id"))
		return
	}
	subscriptionID := snowflake.ID(id)

	date, err := parseOptionalDate(c.Query("date"))
	if err != nil {
		AbortWithError(c, newValidationError("date", "invalid_date", "expected RFC 3339 or YYYY-MM-DD"))
		return
	}
	if date.IsZero() {
		date = s.clock.Now()
	}

	ctx := c.Request.Context()
	sub, err := s.subRepo.FindByID(ctx, s.db, orgID(c), subscriptionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if sub == nil {
		AbortWithError(c, subscriptiondomain.ErrSubscriptionNotFound)
		return
	}

	value, err := s.ledgerSvc.MRRAsOf(ctx, subscriptionID, date)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"subscription_id": subscriptionID,
		"date":            date,
		"mrr":             value,
	}})
}

func (s *Server) ListSnapshots(c *gin.Context) {
	snapshots, err := s.snapshotSvc.List(c.Request.Context(), orgID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": snapshots})
}

func (s *Server) BuildSnapshot(c *gin.Context) {
	snapshot, err := s.snapshotSvc.BuildDaily(c.Request.Context(), orgID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": snapshot})
}

func (s *Server) RevenueCohorts(c *gin.Context) {
	cohorts, err := s.cohortSvc.RevenueCohorts(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": cohorts})
}

func (s *Server) CustomerCohorts(c *gin.Context) {
	cohorts, err := s.cohortSvc.CustomerCohorts(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": cohorts})
}

func (s *Server) Forecast(c *gin.Context) {
	months := forecast.DefaultMonths
	if raw := c.Query("months"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			AbortWithError(c, newValidationError("months", "invalid_months", "months must be a positive integer"))
			return
		}
		months = parsed
	}

	projection, err := s.forecastSvc.Project(c.Request.Context(), months)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": projection})
}
