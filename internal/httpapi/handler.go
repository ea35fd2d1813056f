package httpapi

import (
	"net/http"

	"campaignhub/pkg/broker"
	"campaignhub/pkg/config"
	"campaignhub/pkg/errutil"
	"campaignhub/pkg/health"
	"campaignhub/pkg/middleware"
	"campaignhub/services/audience"
	"campaignhub/services/campaign"
	"campaignhub/services/customer"
	"campaignhub/services/order"
	"campaignhub/services/vendor"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

var Module = fx.Module("httpapi",
	fx.Provide(
		NewHandler,
		NewRouter,
		func(e *gin.Engine) http.Handler { return e },
	),
)

// Handler exposes the campaign API: asynchronous ingestion, audience
// preview, campaign creation and listing, vendor receipt intake, the
// vendor simulator endpoint and dead-letter inspection.
type Handler struct {
	customers *customer.Producer
	orders    *order.Producer
	audience  *audience.Service
	campaigns *campaign.Service
	vendor    *vendor.Simulator
	inspector *asynq.Inspector
}

type HandlerParams struct {
	fx.In

	Customers *customer.Producer
	Orders    *order.Producer
	Audience  *audience.Service
	Campaigns *campaign.Service
	Vendor    *vendor.Simulator
	Inspector *asynq.Inspector `optional:"true"`
}

func NewHandler(p HandlerParams) *Handler {
	return &Handler{
		customers: p.Customers,
		orders:    p.Orders,
		audience:  p.Audience,
		campaigns: p.Campaigns,
		vendor:    p.Vendor,
		inspector: p.Inspector,
	}
}

func NewRouter(cfg *config.Config, h *Handler, hs health.HealthService) *gin.Engine {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.Error())

	r.GET("/healthz", hs.Liveness)
	r.GET("/readyz", hs.Readiness)

	api := r.Group("/api")
	{
		api.POST("/customers", h.IngestCustomer)
		api.POST("/orders", h.IngestOrder)
		api.POST("/audience/preview", h.PreviewAudience)
		api.POST("/campaigns", h.CreateCampaign)
		api.GET("/campaigns", h.ListCampaigns)
		api.POST("/campaigns/delivery-receipt", h.DeliveryReceipt)
		api.GET("/admin/dlq", h.DeadLetters)
	}

	r.POST("/vendor/send", h.VendorSend)

	return r
}

const acceptedMessage = "Request accepted for processing."

func (h *Handler) IngestCustomer(c *gin.Context) {
	var req customer.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.ValidationFailed("invalid request body", errutil.WithErr(err)))
		return
	}

	if err := h.customers.Enqueue(c.Request.Context(), req); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": acceptedMessage})
}

func (h *Handler) IngestOrder(c *gin.Context) {
	var req order.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.ValidationFailed("invalid request body", errutil.WithErr(err)))
		return
	}

	if err := h.orders.Enqueue(c.Request.Context(), req); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": acceptedMessage})
}

type previewRequest struct {
	Query *audience.Query `json:"query"`
}

func (h *Handler) PreviewAudience(c *gin.Context) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.ValidationFailed("invalid request body", errutil.WithErr(err)))
		return
	}
	// A body without a rules array must not fall through to the
	// universal filter and count the whole base.
	if req.Query == nil || req.Query.Rules == nil {
		c.Error(errutil.ValidationFailed("Query object with rules array is required."))
		return
	}

	count, err := h.audience.Preview(c.Request.Context(), *req.Query)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}

type createCampaignRequest struct {
	Query   *audience.Query `json:"query"`
	Message string          `json:"message"`
}

func (h *Handler) CreateCampaign(c *gin.Context) {
	var req createCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.ValidationFailed("invalid request body", errutil.WithErr(err)))
		return
	}
	if req.Query == nil || req.Query.Rules == nil {
		c.Error(errutil.ValidationFailed("Query object with rules array is required."))
		return
	}

	created, err := h.campaigns.Create(c.Request.Context(), *req.Query, req.Message)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *Handler) ListCampaigns(c *gin.Context) {
	campaigns, err := h.campaigns.List(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, campaigns)
}

type receiptRequest struct {
	LogID  string `json:"logId"`
	Status string `json:"status"`
}

func (h *Handler) DeliveryReceipt(c *gin.Context) {
	var req receiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.ValidationFailed("invalid request body", errutil.WithErr(err)))
		return
	}
	if req.LogID == "" || req.Status == "" {
		c.Error(errutil.ValidationFailed("logId and status are required"))
		return
	}

	if err := h.campaigns.RecordReceipt(c.Request.Context(), req.LogID, campaign.LogStatus(req.Status)); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Receipt processed."})
}

type vendorSendRequest struct {
	LogID   string `json:"logId"`
	Message string `json:"message"`
}

func (h *Handler) VendorSend(c *gin.Context) {
	var req vendorSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.ValidationFailed("invalid request body", errutil.WithErr(err)))
		return
	}
	if req.LogID == "" {
		c.Error(errutil.ValidationFailed("logId is required"))
		return
	}

	status := h.vendor.Accept(req.LogID, req.Message)
	c.JSON(http.StatusOK, gin.H{"logId": req.LogID, "status": status})
}

type deadLetterQueue struct {
	Queue   string `json:"queue"`
	Pending int    `json:"pending"`
}

// DeadLetters reports the depth of each dead-letter queue so stuck
// messages are visible without a redis client.
func (h *Handler) DeadLetters(c *gin.Context) {
	if h.inspector == nil {
		c.Error(errutil.Unavailable("dead-letter inspection requires the broker"))
		return
	}

	out := make([]deadLetterQueue, 0, len(broker.Queues()))
	for _, q := range broker.Queues() {
		dlq := broker.DeadLetter(q)
		info, err := h.inspector.GetQueueInfo(dlq)
		if err != nil {
			// A queue asynq has never seen simply has no messages.
			out = append(out, deadLetterQueue{Queue: dlq})
			continue
		}
		out = append(out, deadLetterQueue{Queue: dlq, Pending: info.Pending})
	}

	c.JSON(http.StatusOK, gin.H{"queues": out})
}
