package audience

import (
	"context"
	"testing"
	"time"

	"campaignhub/services/customer"
	"campaignhub/services/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seed(t *testing.T, db *gorm.DB, id string, spends float64, visits int64, lastVisit *time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&customer.Customer{
		CustomerID:  id,
		Name:        "customer " + id,
		Email:       id + "@example.com",
		TotalSpends: spends,
		VisitCount:  visits,
		LastVisit:   lastVisit,
	}).Error)
}

func daysAgo(n int) *time.Time {
	ts := time.Now().UTC().Add(-time.Duration(n) * 24 * time.Hour)
	return &ts
}

func TestPreviewCountsBySpend(t *testing.T) {
	db := testutil.NewTestDB(t, &customer.Customer{})
	seed(t, db, "a", 6000, 1, nil)
	seed(t, db, "b", 3000, 1, nil)
	seed(t, db, "c", 9000, 1, nil)

	svc := NewService(db)
	count, err := svc.Preview(context.Background(), Query{
		Logic: LogicAnd,
		Rules: []Rule{{Field: FieldTotalSpends, Operator: OpGreater, Value: 5000}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}

func TestMatchLastVisitWindow(t *testing.T) {
	db := testutil.NewTestDB(t, &customer.Customer{})
	seed(t, db, "recent", 100, 1, daysAgo(5))
	seed(t, db, "stale", 100, 1, daysAgo(60))

	svc := NewService(db)
	matched, err := svc.Match(context.Background(), Query{
		Logic: LogicAnd,
		Rules: []Rule{{Field: FieldLastVisit, Operator: OpLess, Value: 30}},
	})
	require.NoError(t, err)
	require.Len(t, matched, 1)
	require.Equal(t, "recent", matched[0].CustomerID)
}

func TestMatchCombinesRules(t *testing.T) {
	db := testutil.NewTestDB(t, &customer.Customer{})
	seed(t, db, "big-spender", 10000, 2, daysAgo(90))
	seed(t, db, "regular", 500, 8, daysAgo(2))
	seed(t, db, "dormant", 200, 1, daysAgo(120))

	svc := NewService(db)

	both, err := svc.Preview(context.Background(), Query{
		Logic: LogicAnd,
		Rules: []Rule{
			{Field: FieldTotalSpends, Operator: OpGreater, Value: 5000},
			{Field: FieldVisitCount, Operator: OpGreater, Value: 1},
		},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), both)

	either, err := svc.Preview(context.Background(), Query{
		Logic: LogicOr,
		Rules: []Rule{
			{Field: FieldTotalSpends, Operator: OpGreater, Value: 5000},
			{Field: FieldVisitCount, Operator: OpGreater, Value: 5},
		},
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), either)
}

func TestMatchEmptyQueryReturnsEveryone(t *testing.T) {
	db := testutil.NewTestDB(t, &customer.Customer{})
	seed(t, db, "a", 0, 0, nil)
	seed(t, db, "b", 0, 0, nil)

	svc := NewService(db)
	matched, err := svc.Match(context.Background(), Query{})
	require.NoError(t, err)
	require.Len(t, matched, 2)
}

func TestPreviewRejectsBadQuery(t *testing.T) {
	db := testutil.NewTestDB(t, &customer.Customer{})

	svc := NewService(db)
	_, err := svc.Preview(context.Background(), Query{
		Logic: LogicAnd,
		Rules: []Rule{{Field: FieldLastVisit, Operator: OpEqual, Value: 10}},
	})
	require.Error(t, err)
}
