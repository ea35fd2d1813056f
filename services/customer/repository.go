package customer

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository describes database operations available for customers.
type Repository interface {
	Upsert(ctx context.Context, c *Customer) error
	GetByID(ctx context.Context, customerID string) (*Customer, error)
	GetByEmail(ctx context.Context, email string) (*Customer, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository returns a gorm backed Repository implementation.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// Upsert inserts the customer or, when the email already exists,
// overwrites the mutable profile fields. The single statement keeps
// redelivered ingestion messages idempotent.
func (r *gormRepository) Upsert(ctx context.Context, c *Customer) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
		}).
		Create(c).Error
}

func (r *gormRepository) GetByID(ctx context.Context, customerID string) (*Customer, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var c Customer
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *gormRepository) GetByEmail(ctx context.Context, email string) (*Customer, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var c Customer
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}
