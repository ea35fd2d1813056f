package order

import (
	"context"
	"time"

	"campaignhub/services/customer"

	"gorm.io/gorm"
)

// Repository describes database operations available for orders.
type Repository interface {
	// Apply creates the order and folds it into the customer aggregate
	// in one transaction. The customer update is a single atomic
	// increment, so concurrent orders for the same customer never lose
	// a read-modify-write race.
	Apply(ctx context.Context, o *Order) error
	CountByCustomer(ctx context.Context, customerID string) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository returns a gorm backed Repository implementation.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Apply(ctx context.Context, o *Order) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(o).Error; err != nil {
			return err
		}

		res := tx.Model(&customer.Customer{}).
			Where("customer_id = ?", o.CustomerID).
			Updates(map[string]any{
				"total_spends": gorm.Expr("total_spends + ?", o.Amount),
				"visit_count":  gorm.Expr("visit_count + ?", 1),
				"last_visit":   time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *gormRepository) CountByCustomer(ctx context.Context, customerID string) (int64, error) {
	if r == nil || r.db == nil {
		return 0, gorm.ErrInvalidDB
	}

	var n int64
	err := r.db.WithContext(ctx).Model(&Order{}).
		Where("customer_id = ?", customerID).
		Count(&n).Error
	return n, err
}
