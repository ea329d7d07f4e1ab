package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/customer/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() customerdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, customer *customerdomain.Customer) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO customers (
			id, org_id, name, email, billing_customer_id, crm_company_id, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		customer.ID,
		customer.OrgID,
		customer.Name,
		customer.Email,
		customer.BillingCustomerID,
		customer.CRMCompanyID,
		customer.Metadata,
		customer.CreatedAt,
		customer.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, customer *customerdomain.Customer) error {
	return db.WithContext(ctx).Exec(
		`UPDATE customers
		 SET name = ?, email = ?, billing_customer_id = ?, crm_company_id = ?, metadata = ?, updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		customer.Name,
		customer.Email,
		customer.BillingCustomerID,
		customer.CRMCompanyID,
		customer.Metadata,
		customer.UpdatedAt,
		customer.OrgID,
		customer.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*customerdomain.Customer, error) {
	var customer customerdomain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, name, email, billing_customer_id, crm_company_id, metadata, created_at, updated_at
		 FROM customers WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}

func (r *repo) FindByBillingID(ctx context.Context, db *gorm.DB, orgID snowflake.ID, billingCustomerID string) (*customerdomain.Customer, error) {
	var customer customerdomain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, name, email, billing_customer_id, crm_company_id, metadata, created_at, updated_at
		 FROM customers WHERE org_id = ? AND billing_customer_id = ?`,
		orgID,
		billingCustomerID,
	).Scan(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}

func (r *repo) FindByCRMCompanyID(ctx context.Context, db *gorm.DB, orgID snowflake.ID, crmCompanyID string) (*customerdomain.Customer, error) {
	var customer customerdomain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, name, email, billing_customer_id, crm_company_id, metadata, created_at, updated_at
		 FROM customers WHERE org_id = ? AND crm_company_id = ?`,
		orgID,
		crmCompanyID,
	).Scan(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]*customerdomain.Customer, error) {
	var customers []*customerdomain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, name, email, billing_customer_id, crm_company_id, metadata, created_at, updated_at
		 FROM customers WHERE org_id = ? ORDER BY created_at ASC`,
		orgID,
	).Scan(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}
