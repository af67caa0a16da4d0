package store

import (
	"context"
	"database/sql"
	"fmt"

	"storefront-service/internal/models"
)

// GetActiveCouponByCode retrieves an active, unexpired coupon
func (s *Store) GetActiveCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := s.db.GetContext(ctx, &coupon, `
		SELECT * FROM coupons
		WHERE code = $1 AND active = TRUE AND (expires_at IS NULL OR expires_at > NOW())`,
		code)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("coupon %s: %w", code, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// CreateCoupon creates a discount code (admin)
func (s *Store) CreateCoupon(ctx context.Context, c *models.Coupon) error {
	query := `
		INSERT INTO coupons (code, percent_off, amount_off, min_order, expires_at, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, c, query,
		c.Code, c.PercentOff, c.AmountOff, c.MinOrder, c.ExpiresAt, c.Active)
}

// ListCoupons retrieves all coupons (admin)
func (s *Store) ListCoupons(ctx context.Context) ([]models.Coupon, error) {
	var coupons []models.Coupon
	err := s.db.SelectContext(ctx, &coupons, "SELECT * FROM coupons ORDER BY created_at DESC")
	return coupons, err
}

// DeactivateCoupon disables a discount code (admin)
func (s *Store) DeactivateCoupon(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE coupons SET active = FALSE WHERE id = $1", id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("coupon %d: %w", id, ErrNotFound)
	}
	return nil
}
