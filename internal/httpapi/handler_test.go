package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"campaignhub/pkg/broker"
	"campaignhub/pkg/config"
	"campaignhub/pkg/health"
	"campaignhub/services/audience"
	"campaignhub/services/campaign"
	"campaignhub/services/customer"
	"campaignhub/services/order"
	"campaignhub/services/testutil"
	"campaignhub/services/vendor"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB, *broker.Memory) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewTestDB(t, &customer.Customer{}, &order.Order{}, &campaign.Campaign{}, &campaign.CommunicationLog{})
	mem := broker.NewMemory()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := &config.Config{}
	audienceSvc := audience.NewService(db)
	campaignSvc := campaign.NewService(campaign.ServiceParams{
		DB:       db,
		Node:     node,
		Broker:   mem,
		Audience: audienceSvc,
	})

	h := NewHandler(HandlerParams{
		Customers: customer.NewProducer(mem),
		Orders:    order.NewProducer(mem),
		Audience:  audienceSvc,
		Campaigns: campaignSvc,
		Vendor:    vendor.NewSimulator(cfg),
	})

	hs := health.ProvideHealth(health.HealthParams{DB: db})
	return NewRouter(cfg, h, hs), db, mem
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIngestEndpointsAcceptAsynchronously(t *testing.T) {
	r, db, mem := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/customers", gin.H{"name": "Alice", "email": "alice@example.com"})
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Contains(t, w.Body.String(), "Request accepted for processing.")

	// Accepted means enqueued, not stored.
	var rows int64
	require.NoError(t, db.Model(&customer.Customer{}).Count(&rows).Error)
	require.Zero(t, rows)
	require.Len(t, mem.Messages(broker.QueueCustomerIngestion), 1)

	w = doJSON(t, r, http.MethodPost, "/api/orders", gin.H{"customerId": "u1", "amount": 99.5})
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, mem.Messages(broker.QueueOrderIngestion), 1)
}

func TestIngestValidationFailuresReturn400(t *testing.T) {
	r, _, mem := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/customers", gin.H{"name": "Alice", "email": "nope"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/orders", gin.H{"customerId": "u1", "amount": -1})
	require.Equal(t, http.StatusBadRequest, w.Code)

	require.Empty(t, mem.Messages(broker.QueueCustomerIngestion))
	require.Empty(t, mem.Messages(broker.QueueOrderIngestion))
}

func TestAudiencePreviewEndpoint(t *testing.T) {
	r, db, _ := newTestRouter(t)
	require.NoError(t, db.Create(&customer.Customer{CustomerID: "a", Name: "a", Email: "a@x.co", TotalSpends: 6000}).Error)
	require.NoError(t, db.Create(&customer.Customer{CustomerID: "b", Name: "b", Email: "b@x.co", TotalSpends: 3000}).Error)

	w := doJSON(t, r, http.MethodPost, "/api/audience/preview", gin.H{
		"query": gin.H{
			"logic": "AND",
			"rules": []gin.H{{"field": "totalSpends", "operator": ">", "value": 5000}},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"count":1}`, w.Body.String())
}

func TestAudiencePreviewRequiresQueryEnvelope(t *testing.T) {
	r, db, _ := newTestRouter(t)
	require.NoError(t, db.Create(&customer.Customer{CustomerID: "a", Name: "a", Email: "a@x.co", TotalSpends: 6000}).Error)
	require.NoError(t, db.Create(&customer.Customer{CustomerID: "b", Name: "b", Email: "b@x.co", TotalSpends: 3000}).Error)

	// Rules outside the query envelope must be rejected, not dropped;
	// dropping them would count the whole customer base.
	w := doJSON(t, r, http.MethodPost, "/api/audience/preview", gin.H{
		"logic": "AND",
		"rules": []gin.H{{"field": "totalSpends", "operator": ">", "value": 5000}},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "Query object with rules array is required.")

	w = doJSON(t, r, http.MethodPost, "/api/audience/preview", gin.H{"query": gin.H{"logic": "AND"}})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateCampaignRequiresQueryEnvelope(t *testing.T) {
	r, db, _ := newTestRouter(t)
	require.NoError(t, db.Create(&customer.Customer{CustomerID: "a", Name: "a", Email: "a@x.co", TotalSpends: 6000}).Error)
	require.NoError(t, db.Create(&customer.Customer{CustomerID: "b", Name: "b", Email: "b@x.co", TotalSpends: 3000}).Error)

	w := doJSON(t, r, http.MethodPost, "/api/campaigns", gin.H{
		"logic":   "AND",
		"rules":   []gin.H{{"field": "totalSpends", "operator": ">", "value": 5000}},
		"message": "Hi {name}",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var campaigns int64
	require.NoError(t, db.Model(&campaign.Campaign{}).Count(&campaigns).Error)
	require.Zero(t, campaigns, "a rejected request must not broadcast to the whole base")
}

func TestCampaignLifecycleOverHTTP(t *testing.T) {
	r, db, mem := newTestRouter(t)
	require.NoError(t, db.Create(&customer.Customer{CustomerID: "a", Name: "Alice", Email: "a@x.co", TotalSpends: 6000}).Error)

	w := doJSON(t, r, http.MethodPost, "/api/campaigns", gin.H{
		"query": gin.H{
			"logic": "AND",
			"rules": []gin.H{{"field": "totalSpends", "operator": ">", "value": 5000}},
		},
		"message": "Hi {name}, here's 10% off!",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created campaign.Campaign
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Equal(t, int64(1), created.Stats.Total)
	require.Len(t, mem.Messages(broker.QueueDelivery), 1)

	var log campaign.CommunicationLog
	require.NoError(t, db.First(&log, "campaign_id = ?", created.CampaignID).Error)

	w = doJSON(t, r, http.MethodPost, "/api/campaigns/delivery-receipt", gin.H{
		"logId":  log.LogID,
		"status": "SENT",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/campaigns", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var listed []campaign.Campaign
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	require.Equal(t, int64(1), listed[0].Stats.Sent)
}

func TestCampaignWithEmptyAudienceReturns400(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/campaigns", gin.H{
		"query": gin.H{
			"logic": "AND",
			"rules": []gin.H{{"field": "totalSpends", "operator": ">", "value": 5000}},
		},
		"message": "Hi {name}",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "No customers found for the given criteria.")
}

func TestHealthEndpoints(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, w.Code)
}
