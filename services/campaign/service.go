package campaign

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"campaignhub/pkg/broker"
	"campaignhub/pkg/errutil"
	"campaignhub/services/audience"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Saga stages of campaign creation, in commit order. Logs and jobs exist
// before the campaign row does: a crash mid-fan-out leaves detectable
// orphaned logs rather than a committed campaign with no jobs in flight.
const (
	stageAudienceResolved = "audience_resolved"
	stageFanOut           = "fan_out"
	stageCommit           = "campaign_committed"
)

type Service struct {
	db     *gorm.DB
	node   *snowflake.Node
	broker broker.Publisher

	audience *audience.Service
}

type ServiceParams struct {
	fx.In

	DB       *gorm.DB
	Node     *snowflake.Node
	Broker   broker.Publisher
	Audience *audience.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:       p.DB,
		node:     p.Node,
		broker:   p.Broker,
		audience: p.Audience,
	}
}

// Create runs the campaign-creation saga: resolve the audience, then per
// recipient create a PENDING communication log and enqueue its delivery
// job, and only after every job is enqueued persist the campaign row.
// Partial fan-out failures abort without committing; logs already created
// remain as orphans (no compensating cleanup is attempted).
func (s *Service) Create(ctx context.Context, q audience.Query, message string) (*Campaign, error) {
	if strings.TrimSpace(message) == "" {
		return nil, errutil.ValidationFailed("Message is required")
	}

	customers, err := s.audience.Match(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(customers) == 0 {
		return nil, errutil.BadRequest("No customers found for the given criteria.")
	}

	campaignID := s.node.Generate().String()
	zapLog := zap.L().With(
		zap.String("campaign_id", campaignID),
		zap.Int("recipients", len(customers)),
	)
	zapLog.Info("[Campaign] audience resolved", zap.String("stage", stageAudienceResolved))

	for i, cust := range customers {
		personalized := strings.ReplaceAll(message, "{name}", cust.Name)
		log := CommunicationLog{
			LogID:      s.node.Generate().String(),
			CampaignID: campaignID,
			CustomerID: cust.CustomerID,
			Message:    personalized,
			Status:     LogStatusPending,
		}
		if err := s.db.WithContext(ctx).Create(&log).Error; err != nil {
			zapLog.Error("[Campaign] fan-out aborted", zap.String("stage", stageFanOut), zap.Int("done", i), zap.Error(err))
			return nil, fmt.Errorf("%s: create log for customer %s: %w", stageFanOut, cust.CustomerID, err)
		}

		job, err := json.Marshal(DeliveryJob{LogID: log.LogID})
		if err != nil {
			return nil, fmt.Errorf("%s: encode delivery job: %w", stageFanOut, err)
		}
		if err := s.broker.Publish(ctx, broker.QueueDelivery, job, broker.Headers{}); err != nil {
			zapLog.Error("[Campaign] fan-out aborted, orphaned logs remain",
				zap.String("stage", stageFanOut), zap.Int("done", i+1), zap.Error(err))
			return nil, fmt.Errorf("%s: enqueue delivery job for log %s: %w", stageFanOut, log.LogID, err)
		}
	}

	snapshot, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("%s: encode rules snapshot: %w", stageCommit, err)
	}

	c := Campaign{
		CampaignID: campaignID,
		Rules:      snapshot,
		Message:    message,
		Status:     CampaignStatusPending,
		Stats:      Stats{Total: int64(len(customers))},
	}
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		zapLog.Error("[Campaign] commit failed, orphaned logs remain", zap.String("stage", stageCommit), zap.Error(err))
		return nil, fmt.Errorf("%s: %w", stageCommit, err)
	}

	zapLog.Info("[Campaign] committed", zap.String("stage", stageCommit))
	return &c, nil
}

// List returns all campaigns, newest first.
func (s *Service) List(ctx context.Context) ([]Campaign, error) {
	var campaigns []Campaign
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&campaigns).Error
	if err != nil {
		return nil, err
	}
	return campaigns, nil
}

// RecordReceipt applies a delivery outcome. The log transitions out of
// PENDING at most once; only that transition increments the campaign's
// counters, so duplicate vendor callbacks are acknowledged without
// double-counting.
func (s *Service) RecordReceipt(ctx context.Context, logID string, status LogStatus) error {
	if status != LogStatusSent && status != LogStatusFailed {
		return errutil.ValidationFailed(fmt.Sprintf("invalid receipt status %q", status))
	}

	// The status transition and the counter increment commit together;
	// a log must never leave PENDING without its campaign counting it.
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var log CommunicationLog
		if err := tx.Where("log_id = ?", logID).First(&log).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errutil.NotFound("Log not found")
			}
			return err
		}

		res := tx.Model(&CommunicationLog{}).
			Where("log_id = ? AND status = ?", logID, LogStatusPending).
			Update("status", status)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			zap.L().Info("[Receipt] duplicate receipt ignored",
				zap.String("log_id", logID), zap.String("status", string(log.Status)))
			return nil
		}

		column := "stats_sent"
		if status == LogStatusFailed {
			column = "stats_failed"
		}
		if err := tx.Model(&Campaign{}).
			Where("campaign_id = ?", log.CampaignID).
			UpdateColumn(column, gorm.Expr(column+" + ?", 1)).Error; err != nil {
			return err
		}

		zap.L().Info("[Receipt] delivery outcome recorded",
			zap.String("log_id", logID),
			zap.String("campaign_id", log.CampaignID),
			zap.String("status", string(status)),
		)
		return nil
	})
}
