package ingest

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/customer/domain"
	ledgerdomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/ledger/domain"
	"github.com/maguire-murphy/rev-ops-platform-sub000/pkg/db"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CustomerSync is one customer record as delivered by a sync pass or
// webhook. At most one billing-provider ID and one CRM company ID each,
// unique within the organization.
type CustomerSync struct {
	OrgID             snowflake.ID      `json:"-"`
	BillingCustomerID string            `json:"billing_customer_id"`
	CRMCompanyID      string            `json:"crm_company_id"`
	Name              string            `json:"name"`
	Email             string            `json:"email"`
	Metadata          datatypes.JSONMap `json:"metadata"`
}

// SyncCustomer upserts a customer from an external sync record. An unseen
// external ID creates the customer; a known one refreshes name, email and
// metadata in place. Customers are never deleted here, their lifecycle ends
// through movements reaching zero MRR.
func (s *Service) SyncCustomer(ctx context.Context, sync CustomerSync) (*customerdomain.Customer, error) {
	if sync.OrgID == 0 {
		return nil, ledgerdomain.ErrInvalidOrganization
	}
	billingID := strings.TrimSpace(sync.BillingCustomerID)
	crmID := strings.TrimSpace(sync.CRMCompanyID)
	if billingID == "" && crmID == "" {
		return nil, ledgerdomain.ErrMissingCustomer
	}

	var customer *customerdomain.Customer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.resolve(ctx, tx, sync.OrgID, billingID, crmID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if existing == nil {
			customer = &customerdomain.Customer{
				ID:        s.genID.Generate(),
				OrgID:     sync.OrgID,
				Name:      sync.Name,
				Email:     sync.Email,
				Metadata:  sync.Metadata,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if billingID != "" {
				customer.BillingCustomerID = &billingID
			}
			if crmID != "" {
				customer.CRMCompanyID = &crmID
			}
			if err := s.customerRepo.Insert(ctx, tx, customer); err != nil {
				if db.IsDuplicateKeyErr(err) {
					return customerdomain.ErrCustomerExists
				}
				return err
			}
			s.log.Info("customer created from sync",
				zap.String("org_id", sync.OrgID.String()),
				zap.String("customer_id", customer.ID.String()),
			)
			return nil
		}

		existing.Name = sync.Name
		existing.Email = sync.Email
		if billingID != "" {
			existing.BillingCustomerID = &billingID
		}
		if crmID != "" {
			existing.CRMCompanyID = &crmID
		}
		if sync.Metadata != nil {
			existing.Metadata = sync.Metadata
		}
		existing.UpdatedAt = now
		if err := s.customerRepo.Update(ctx, tx, existing); err != nil {
			return err
		}
		customer = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *Service) resolve(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, billingID, crmID string) (*customerdomain.Customer, error) {
	if billingID != "" {
		customer, err := s.customerRepo.FindByBillingID(ctx, tx, orgID, billingID)
		if err != nil || customer != nil {
			return customer, err
		}
	}
	if crmID != "" {
		return s.customerRepo.FindByCRMCompanyID(ctx, tx, orgID, crmID)
	}
	return nil, nil
}
