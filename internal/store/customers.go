package store

import (
	"context"
	"database/sql"
	"fmt"

	"storefront-service/internal/models"
)

// CreateCustomer creates a new customer account
func (s *Store) CreateCustomer(ctx context.Context, c *models.Customer) error {
	query := `
		INSERT INTO customers (email, name, tax_id, phone, marketing_consent)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, c, query,
		c.Email, c.Name, c.TaxID, c.Phone, c.MarketingConsent)
}

// GetCustomerByID retrieves a customer by ID
func (s *Store) GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error) {
	var customer models.Customer
	err := s.db.GetContext(ctx, &customer, "SELECT * FROM customers WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("customer %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// GetCustomerByEmail retrieves a customer by email
func (s *Store) GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var customer models.Customer
	err := s.db.GetContext(ctx, &customer, "SELECT * FROM customers WHERE email = $1", email)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("customer %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// UpdateCustomer updates customer profile fields
func (s *Store) UpdateCustomer(ctx context.Context, c *models.Customer) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE customers SET name = $1, tax_id = $2, phone = $3, updated_at = NOW() WHERE id = $4",
		c.Name, c.TaxID, c.Phone, c.ID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("customer %d: %w", c.ID, ErrNotFound)
	}
	return nil
}

// UpdateMarketingConsent records the customer's consent decision
func (s *Store) UpdateMarketingConsent(ctx context.Context, customerID int64, consent bool) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE customers SET marketing_consent = $1, updated_at = NOW() WHERE id = $2",
		consent, customerID)
	return err
}

// ListCustomers retrieves customers for the admin back office
func (s *Store) ListCustomers(ctx context.Context, limit, offset int) ([]models.Customer, error) {
	var customers []models.Customer
	err := s.db.SelectContext(ctx, &customers,
		"SELECT * FROM customers ORDER BY created_at DESC LIMIT $1 OFFSET $2", limit, offset)
	return customers, err
}

// CreateAddress creates a shipping address. A new default address clears the
// previous default for the same customer.
func (s *Store) CreateAddress(ctx context.Context, a *models.Address) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if a.IsDefault {
		_, err = tx.ExecContext(ctx,
			"UPDATE addresses SET is_default = FALSE WHERE customer_id = $1", a.CustomerID)
		if err != nil {
			return err
		}
	}

	query := `
		INSERT INTO addresses (customer_id, label, street, number, complement, city, state, zip, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err = tx.GetContext(ctx, a, query,
		a.CustomerID, a.Label, a.Street, a.Number, a.Complement, a.City, a.State, a.Zip, a.IsDefault)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// GetAddressByID retrieves an address by ID
func (s *Store) GetAddressByID(ctx context.Context, id int64) (*models.Address, error) {
	var address models.Address
	err := s.db.GetContext(ctx, &address, "SELECT * FROM addresses WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("address %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &address, nil
}

// ListAddressesByCustomer retrieves all addresses of a customer
func (s *Store) ListAddressesByCustomer(ctx context.Context, customerID int64) ([]models.Address, error) {
	var addresses []models.Address
	err := s.db.SelectContext(ctx, &addresses,
		"SELECT * FROM addresses WHERE customer_id = $1 ORDER BY is_default DESC, id", customerID)
	return addresses, err
}

// GetDefaultAddress retrieves the customer's default shipping address
func (s *Store) GetDefaultAddress(ctx context.Context, customerID int64) (*models.Address, error) {
	var address models.Address
	err := s.db.GetContext(ctx, &address,
		"SELECT * FROM addresses WHERE customer_id = $1 AND is_default = TRUE", customerID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("default address for customer %d: %w", customerID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &address, nil
}

// DeleteAddress removes a customer address
func (s *Store) DeleteAddress(ctx context.Context, customerID, addressID int64) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM addresses WHERE id = $1 AND customer_id = $2", addressID, customerID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("address %d: %w", addressID, ErrNotFound)
	}
	return nil
}
