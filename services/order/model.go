package order

import "time"

// Order is immutable once created. CustomerID references the customer
// aggregate without owning it.
type Order struct {
	OrderID    string    `gorm:"column:order_id;primaryKey" json:"id"`
	CustomerID string    `gorm:"column:customer_id;index;not null" json:"customerId"`
	Amount     float64   `gorm:"column:amount;not null" json:"amount"`
	OrderDate  time.Time `gorm:"column:order_date;not null" json:"orderDate"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (Order) TableName() string { return "orders" }
