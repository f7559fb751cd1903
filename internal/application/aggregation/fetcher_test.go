package aggregation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diillson/aws-costlens/internal/domain/entity"
)

func marchPeriods() entity.PeriodPair {
	return entity.PeriodPair{
		Current:  entity.TimeRange{Start: day(2024, 3, 1), End: day(2024, 3, 15)},
		Previous: entity.TimeRange{Start: day(2024, 2, 1), End: day(2024, 3, 1)},
	}
}

func TestCostFetcher_TagsItemsWithSession(t *testing.T) {
	billing := newFakeBilling()
	billing.set("prod", "us-east-1", true, line("Amazon EC2", "12.34"), resourceLine("Amazon S3", "bucket-a", "1.10"))

	f := NewCostFetcher(billing, time.Second, nil)
	items, notes, err := f.Fetch(context.Background(), resolvedSession("prod", "222222222222"), "us-east-1", entity.PeriodCurrent, marchPeriods(), nil)
	require.NoError(t, err)
	assert.Empty(t, notes)

	require.Len(t, items, 2)
	for _, it := range items {
		assert.Equal(t, "222222222222", it.AccountID)
		assert.Equal(t, "prod", it.Profile)
		assert.Equal(t, "us-east-1", it.Region)
		assert.Equal(t, entity.PeriodCurrent, it.Period)
		assert.Equal(t, "USD", it.Currency)
	}
	assert.Equal(t, "bucket-a", items[1].ResourceID)
}

func TestCostFetcher_ReportsExcludedCredits(t *testing.T) {
	billing := newFakeBilling()
	billing.set("prod", entity.AllRegions, true, line("Amazon EC2", "10"), line("Credits", "-4"))

	f := NewCostFetcher(billing, time.Second, nil)
	items, notes, err := f.Fetch(context.Background(), resolvedSession("prod", "1"), entity.AllRegions, entity.PeriodCurrent, marchPeriods(), nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Amazon EC2", items[0].Service)

	require.Len(t, notes, 1)
	assert.Equal(t, entity.KindCreditExcluded, notes[0].Kind)
	assert.Equal(t, "prod", notes[0].Profile)
	assert.Equal(t, "all", notes[0].Region)
	assert.Equal(t, "current", notes[0].Period)
	assert.ErrorIs(t, notes[0], entity.ErrCreditExcluded)
	assert.Contains(t, notes[0].Reason(), "Credits net amount -4.00 USD")
}

func TestCostFetcher_QueriesShareRunWindow(t *testing.T) {
	billing := newFakeBilling()
	f := NewCostFetcher(billing, time.Second, nil)
	s := resolvedSession("prod", "1")
	preds := []entity.TagPredicate{{Key: "Env", Value: "prod"}}

	for _, p := range []entity.Period{entity.PeriodCurrent, entity.PeriodPrevious} {
		_, _, err := f.Fetch(context.Background(), s, entity.AllRegions, p, marchPeriods(), preds)
		require.NoError(t, err)
	}

	require.Len(t, billing.queries, 2)
	for _, q := range billing.queries {
		assert.Equal(t, day(2024, 2, 1), q.Since)
		assert.True(t, q.WithResources)
		assert.Equal(t, preds, q.Tags)
	}
	assert.Equal(t, day(2024, 3, 1), billing.queries[0].Interval.Start)
	assert.Equal(t, day(2024, 2, 1), billing.queries[1].Interval.Start)
}

func TestCostFetcher_UnresolvedSession(t *testing.T) {
	billing := newFakeBilling()
	s := entity.NewProfileSession("dev", nil)
	s.MarkUnresolved(errBoom)

	_, _, err := NewCostFetcher(billing, time.Second, nil).Fetch(context.Background(), s, entity.AllRegions, entity.PeriodCurrent, marchPeriods(), nil)
	assert.ErrorIs(t, err, entity.ErrIdentityUnresolved)
	assert.Zero(t, billing.queryCount())
}

func TestCostFetcher_FetchCostsCollectsRegionErrors(t *testing.T) {
	billing := newFakeBilling()
	billing.set("prod", "us-east-1", true, line("Amazon EC2", "5"), line("Savings Plans", "-1"))
	billing.fail("prod", "ap-south-1", true, errBoom)

	f := NewCostFetcher(billing, time.Second, nil)
	items, errs := f.FetchCosts(context.Background(), resolvedSession("prod", "1"),
		[]string{"us-east-1", "ap-south-1"}, entity.PeriodCurrent, marchPeriods(), nil)

	assert.Len(t, items, 1)
	require.Len(t, errs, 2)
	assert.Equal(t, "us-east-1", errs[0].Region)
	assert.Equal(t, entity.KindCreditExcluded, errs[0].Kind)
	assert.Equal(t, "ap-south-1", errs[1].Region)
	assert.Equal(t, entity.KindPartialFetchFailure, errs[1].Kind)
}

func TestSessionResolver_EmptyAccountIsUnresolved(t *testing.T) {
	creds := &fakeCredentials{accounts: map[string]string{"ok": "123456789012", "empty": ""}}
	r := NewSessionResolver(creds, time.Second, nil)

	sessions, errs, err := r.ResolveAll(context.Background(), []string{"ok", "empty"}, []string{"us-east-1"}, 2)
	require.NoError(t, err)

	require.Len(t, sessions, 2)
	assert.Equal(t, "ok", sessions[0].ProfileName)
	assert.True(t, sessions[0].Resolved())
	assert.Equal(t, []string{"us-east-1"}, sessions[0].Regions)
	assert.False(t, sessions[1].Resolved())

	require.Len(t, errs, 1)
	assert.Equal(t, "empty", errs[0].Profile)
	assert.ErrorIs(t, errs[0], errEmptyAccountID)
}
