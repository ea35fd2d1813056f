package audience

import (
	"context"
	"time"

	"campaignhub/services/customer"

	"gorm.io/gorm"
)

// Service answers audience questions against the customer store.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Preview counts the customers the query matches without fetching them.
func (s *Service) Preview(ctx context.Context, q Query) (int64, error) {
	filter, err := Compile(q, time.Now().UTC())
	if err != nil {
		return 0, err
	}

	var count int64
	err = filter.Apply(s.db.WithContext(ctx).Model(&customer.Customer{})).
		Count(&count).Error
	return count, err
}

// Match fetches every customer the query matches.
func (s *Service) Match(ctx context.Context, q Query) ([]customer.Customer, error) {
	filter, err := Compile(q, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	var customers []customer.Customer
	err = filter.Apply(s.db.WithContext(ctx).Model(&customer.Customer{})).
		Find(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}
