package customer

import "time"

// Customer is the audience-facing aggregate. The email is the natural key
// for ingestion upserts; the spend/visit fields are mutated only by the
// order consumer and read by audience queries.
type Customer struct {
	CustomerID  string     `gorm:"column:customer_id;primaryKey" json:"id"`
	Name        string     `gorm:"column:name;not null" json:"name"`
	Email       string     `gorm:"column:email;uniqueIndex;not null" json:"email"`
	TotalSpends float64    `gorm:"column:total_spends;not null;default:0" json:"totalSpends"`
	VisitCount  int64      `gorm:"column:visit_count;not null;default:0" json:"visitCount"`
	LastVisit   *time.Time `gorm:"column:last_visit" json:"lastVisit"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (Customer) TableName() string { return "customers" }
