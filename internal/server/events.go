package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/ingest"
	ledgerdomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/ledger/domain"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/mrr"
	subscriptiondomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/subscription/domain"
	"gorm.io/datatypes"
)

type subscriptionEventRequest struct {
	ExternalSubscriptionID string `json:"external_subscription_id"`
	ExternalCustomerID     string `json:"external_customer_id"`
	Status                 string `json:"status"`
	Amount                 int64  `json:"amount"`
	Interval               string `json:"interval"`
	IntervalCount          int    `json:"interval_count"`
	EffectiveDate          string `json:"effective_date"`
}

func (s *Server) IngestSubscriptionEvent(c *gin.Context) {
	var req subscriptionEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	effectiveDate, err := parseOptionalDate(req.EffectiveDate)
	if err != nil {
		AbortWithError(c, newValidationError("effective_date", "invalid_effective_date", "expected RFC 3339 or YYYY-MM-DD"))
		return
	}

	event := ledgerdomain.ChangeEvent{
		OrgID:                  orgID(c),
		ExternalSubscriptionID: strings.TrimSpace(req.ExternalSubscriptionID),
		ExternalCustomerID:     strings.TrimSpace(req.ExternalCustomerID),
		Status:                 subscriptiondomain.Status(strings.TrimSpace(req.Status)),
		Amount:                 req.Amount,
		Interval:               mrr.Interval(strings.TrimSpace(req.Interval)),
		IntervalCount:          req.IntervalCount,
		EffectiveDate:          effectiveDate,
	}

	result, err := s.ingestSvc.Ingest(c.Request.Context(), event)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusOK
	if result.Skipped {
		status = http.StatusAccepted
	}
	c.JSON(status, gin.H{"data": result})
}

type syncCustomerRequest struct {
	BillingCustomerID string            `json:"billing_customer_id"`
	CRMCompanyID      string            `json:"crm_company_id"`
	Name              string            `json:"name"`
	Email             string            `json:"email"`
	Metadata          datatypes.JSONMap `json:"metadata"`
}

func (s *Server) SyncCustomer(c *gin.Context) {
	var req syncCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	customer, err := s.ingestSvc.SyncCustomer(c.Request.Context(), ingest.CustomerSync{
		OrgID:             orgID(c),
		BillingCustomerID: req.BillingCustomerID,
		CRMCompanyID:      req.CRMCompanyID,
		Name:              strings.TrimSpace(req.Name),
		Email:             strings.TrimSpace(req.Email),
		Metadata:          req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": customer})
}

func (s *Server) ListCustomers(c *gin.Context) {
	customers, err := s.customerRepo.List(c.Request.Context(), s.db, orgID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": customers})
}

// parseOptionalDate accepts an RFC 3339 timestamp or a plain calendar date.
// Empty input returns the zero time.
func parseOptionalDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
