package service

import (
	"context"
	"fmt"

	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// CustomerService handles accounts, addresses and consent
type CustomerService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewCustomerService creates a new customer service
func NewCustomerService(st *store.Store) *CustomerService {
	return &CustomerService{
		store:  st,
		logger: util.GetLogger(),
	}
}

// Register creates a customer account
func (s *CustomerService) Register(ctx context.Context, c *models.Customer) error {
	if c.Email == "" || c.Name == "" {
		return fmt.Errorf("%w: email and name are required", ErrValidation)
	}

	if err := s.store.CreateCustomer(ctx, c); err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}

	s.logger.Info("Customer registered", zap.Int64("customer_id", c.ID))
	return nil
}

// GetCustomer retrieves a customer profile
func (s *CustomerService) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	return s.store.GetCustomerByID(ctx, id)
}

// UpdateCustomer updates profile fields
func (s *CustomerService) UpdateCustomer(ctx context.Context, c *models.Customer) error {
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	return s.store.UpdateCustomer(ctx, c)
}

// UpdateConsent records the customer's marketing consent decision
func (s *CustomerService) UpdateConsent(ctx context.Context, customerID int64, consent bool) error {
	if err := s.store.UpdateMarketingConsent(ctx, customerID, consent); err != nil {
		return fmt.Errorf("failed to update consent: %w", err)
	}
	s.logger.Info("Marketing consent updated",
		zap.Int64("customer_id", customerID),
		zap.Bool("consent", consent))
	return nil
}

// ListCustomers lists accounts for the admin back office
func (s *CustomerService) ListCustomers(ctx context.Context, limit, offset int) ([]models.Customer, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.store.ListCustomers(ctx, limit, offset)
}

// CreateAddress adds a shipping address
func (s *CustomerService) CreateAddress(ctx context.Context, a *models.Address) error {
	if a.Street == "" || a.City == "" || a.State == "" || a.Zip == "" {
		return fmt.Errorf("%w: incomplete address", ErrValidation)
	}
	return s.store.CreateAddress(ctx, a)
}

// ListAddresses returns a customer's addresses, default first
func (s *CustomerService) ListAddresses(ctx context.Context, customerID int64) ([]models.Address, error) {
	return s.store.ListAddressesByCustomer(ctx, customerID)
}

// DeleteAddress removes a customer address
func (s *CustomerService) DeleteAddress(ctx context.Context, customerID, addressID int64) error {
	return s.store.DeleteAddress(ctx, customerID, addressID)
}

// AccountExport bundles everything stored about a customer, served from the
// legal/consent pages as a data access request.
type AccountExport struct {
	Customer  *models.Customer `json:"customer"`
	Addresses []models.Address `json:"addresses"`
	Orders    []models.Order   `json:"orders"`
}

// ExportAccountData collects the customer's stored data
func (s *CustomerService) ExportAccountData(ctx context.Context, customerID int64) (*AccountExport, error) {
	customer, err := s.store.GetCustomerByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	addresses, err := s.store.ListAddressesByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	orders, err := s.store.ListOrdersByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	return &AccountExport{
		Customer:  customer,
		Addresses: addresses,
		Orders:    orders,
	}, nil
}
