package campaign

import (
	"time"

	"gorm.io/datatypes"
)

type CampaignStatus string

const (
	CampaignStatusPending CampaignStatus = "PENDING"
	CampaignStatusSent    CampaignStatus = "SENT"
	CampaignStatusFailed  CampaignStatus = "FAILED"
)

type LogStatus string

const (
	LogStatusPending LogStatus = "PENDING"
	LogStatusSent    LogStatus = "SENT"
	LogStatusFailed  LogStatus = "FAILED"
)

// Stats are the campaign's running delivery totals. Total is fixed at
// creation and equals the number of communication logs; sent and failed
// only grow through receipt handling and never exceed total together.
type Stats struct {
	Total  int64 `gorm:"column:total;not null;default:0" json:"total"`
	Sent   int64 `gorm:"column:sent;not null;default:0" json:"sent"`
	Failed int64 `gorm:"column:failed;not null;default:0" json:"failed"`
}

// Campaign stores the audience query snapshot verbatim for auditability.
// Its identity is allocated before the row is written, so communication
// logs created during fan-out reference it even though the campaign row
// is committed last.
type Campaign struct {
	CampaignID string         `gorm:"column:campaign_id;primaryKey" json:"id"`
	Rules      datatypes.JSON `gorm:"column:rules;not null" json:"rules"`
	Message    string         `gorm:"column:message;not null" json:"message"`
	Status     CampaignStatus `gorm:"column:status;not null;default:'PENDING'" json:"status"`
	Stats      Stats          `gorm:"embedded;embeddedPrefix:stats_" json:"stats"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (Campaign) TableName() string { return "campaigns" }

// CommunicationLog is one personalized delivery attempt, owned by its
// campaign. Exactly one delivery job is enqueued per log, and the status
// moves PENDING to SENT or FAILED exactly once.
type CommunicationLog struct {
	LogID      string    `gorm:"column:log_id;primaryKey" json:"id"`
	CampaignID string    `gorm:"column:campaign_id;index;not null" json:"campaignId"`
	CustomerID string    `gorm:"column:customer_id;not null" json:"customerId"`
	Message    string    `gorm:"column:message;not null" json:"message"`
	Status     LogStatus `gorm:"column:status;not null;default:'PENDING'" json:"status"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (CommunicationLog) TableName() string { return "communication_logs" }

// DeliveryJob is the delivery queue payload: one job per communication
// log.
type DeliveryJob struct {
	LogID string `json:"logId"`
}
