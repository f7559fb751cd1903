package aggregation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diillson/aws-costlens/internal/domain/entity"
)

func newTestEngine(creds *fakeCredentials, billing *fakeBilling, inv *fakeInventory, timeout time.Duration) *Engine {
	return NewEngine(creds, billing, inv, Config{Workers: 4, CallTimeout: timeout, Now: fixedNow}, nil)
}

func TestEngine_PartialIdentityFailure(t *testing.T) {
	creds := &fakeCredentials{
		accounts: map[string]string{"prod": "222222222222"},
		errs:     map[string]error{"dev": errBoom},
	}
	billing := newFakeBilling()
	billing.set("prod", entity.AllRegions, true, line("EC2", "50.00"))
	billing.set("prod", entity.AllRegions, false, line("EC2", "40.00"))

	res, err := newTestEngine(creds, billing, nil, time.Second).Run(context.Background(), Request{
		Profiles: []string{"dev", "prod"},
	})
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.False(t, res.Failed())
	assert.Equal(t, 2, res.Profiles)
	assert.Equal(t, 1, res.ResolvedProfiles)

	require.Len(t, res.Model.Accounts, 1)
	rec := res.Model.Accounts[0]
	assert.Equal(t, "222222222222", rec.AccountID)
	assert.Equal(t, []string{"prod"}, rec.ProfileNames)
	assert.Equal(t, "50.00", rec.CurrentTotal.StringFixed(2))
	assert.Equal(t, "40.00", rec.PreviousTotal.StringFixed(2))

	require.Len(t, res.Errors, 1)
	assert.Equal(t, entity.KindIdentityUnresolved, res.Errors[0].Kind)
	assert.Equal(t, "dev", res.Errors[0].Profile)
	assert.ErrorIs(t, res.Errors[0], entity.ErrIdentityUnresolved)

	assert.NotEmpty(t, res.Model.RunID)
	assert.Equal(t, "USD", res.Model.Currency)
	assert.Equal(t, day(2024, 3, 1), res.Model.Periods.Current.Start)
}

func TestEngine_NoProfilesResolved(t *testing.T) {
	creds := &fakeCredentials{errs: map[string]error{"a": errBoom, "b": errBoom}}
	billing := newFakeBilling()

	res, err := newTestEngine(creds, billing, nil, time.Second).Run(context.Background(), Request{
		Profiles: []string{"a", "b"},
	})
	require.NoError(t, err)

	assert.True(t, res.Failed())
	assert.Empty(t, res.Model.Accounts)
	assert.NotNil(t, res.Model.Accounts)
	assert.Zero(t, billing.queryCount())

	require.Len(t, res.Errors, 3)
	assert.Equal(t, entity.KindIdentityUnresolved, res.Errors[0].Kind)
	assert.Equal(t, entity.KindIdentityUnresolved, res.Errors[1].Kind)
	assert.Equal(t, entity.KindNoProfilesResolved, res.Errors[2].Kind)
}

func TestEngine_PreflightErrors(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{name: "empty profile list", req: Request{}, wantErr: entity.ErrEmptyProfileList},
		{name: "blank profiles", req: Request{Profiles: []string{" ", ""}}, wantErr: entity.ErrEmptyProfileList},
		{name: "inverted range", req: Request{Profiles: []string{"a"}, TimeSpec: "2024-03-10:2024-03-01"}, wantErr: entity.ErrInvalidTimeRange},
		{name: "zero days", req: Request{Profiles: []string{"a"}, TimeSpec: "0"}, wantErr: entity.ErrInvalidTimeRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds := &fakeCredentials{accounts: map[string]string{"a": "1"}}
			billing := newFakeBilling()

			res, err := newTestEngine(creds, billing, nil, time.Second).Run(context.Background(), tt.req)

			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, creds.calls.Load())
			assert.Zero(t, billing.queryCount())
		})
	}
}

func TestEngine_MergeFlag(t *testing.T) {
	creds := &fakeCredentials{accounts: map[string]string{
		"dev":       "111111111111",
		"dev-admin": "111111111111",
	}}
	billing := newFakeBilling()
	billing.set("dev", entity.AllRegions, true, line("Amazon EC2", "10"), line("Amazon S3", "1"))
	billing.set("dev-admin", entity.AllRegions, true, line("Amazon EC2", "5"))

	engine := newTestEngine(creds, billing, nil, time.Second)

	merged, err := engine.Run(context.Background(), Request{Profiles: []string{"dev", "dev-admin"}, Merge: true})
	require.NoError(t, err)
	require.Len(t, merged.Model.Accounts, 1)
	assert.Equal(t, []string{"dev", "dev-admin"}, merged.Model.Accounts[0].ProfileNames)
	assert.Equal(t, "15", merged.Model.Accounts[0].ByService["Amazon EC2"].Current.String())
	assert.True(t, merged.Model.Merged)

	separate, err := engine.Run(context.Background(), Request{Profiles: []string{"dev", "dev-admin"}})
	require.NoError(t, err)
	require.Len(t, separate.Model.Accounts, 2)
	assert.Equal(t, separate.Model.Accounts[0].AccountID, separate.Model.Accounts[1].AccountID)
	assert.NotEqual(t, merged.Model.RunID, separate.Model.RunID)
}

func TestEngine_RegionFailureIsPartial(t *testing.T) {
	creds := &fakeCredentials{accounts: map[string]string{"prod": "222222222222"}}
	billing := newFakeBilling()
	billing.set("prod", "us-east-1", true, line("Amazon EC2", "30"))
	billing.set("prod", "us-east-1", false, line("Amazon EC2", "20"))
	billing.fail("prod", "eu-west-1", true, errBoom)
	billing.set("prod", "eu-west-1", false, line("Amazon RDS", "7"))

	res, err := newTestEngine(creds, billing, nil, time.Second).Run(context.Background(), Request{
		Profiles: []string{"prod"},
		Regions:  []string{"us-east-1", "eu-west-1"},
	})
	require.NoError(t, err)

	require.Len(t, res.Model.Accounts, 1)
	rec := res.Model.Accounts[0]
	assert.Equal(t, "30", rec.CurrentTotal.String())
	assert.Equal(t, "27", rec.PreviousTotal.String())

	require.Len(t, res.Errors, 1)
	e := res.Errors[0]
	assert.Equal(t, entity.KindPartialFetchFailure, e.Kind)
	assert.Equal(t, "prod", e.Profile)
	assert.Equal(t, "eu-west-1", e.Region)
	assert.Equal(t, "current", e.Period)
	assert.True(t, errors.Is(e, errBoom))
	assert.Equal(t, 4, billing.queryCount())
}

func TestEngine_CurrencyMismatchWithinCall(t *testing.T) {
	creds := &fakeCredentials{accounts: map[string]string{"prod": "222222222222"}}
	billing := newFakeBilling()
	billing.set("prod", entity.AllRegions, true,
		line("Amazon EC2", "10"),
		entity.BillingLine{Service: "Amazon S3", Amount: dec("3"), Currency: "EUR"})
	billing.set("prod", entity.AllRegions, false, line("Amazon EC2", "8"))

	res, err := newTestEngine(creds, billing, nil, time.Second).Run(context.Background(), Request{Profiles: []string{"prod"}})
	require.NoError(t, err)

	require.Len(t, res.Errors, 1)
	assert.Equal(t, entity.KindCurrencyMismatch, res.Errors[0].Kind)
	assert.ErrorIs(t, res.Errors[0], entity.ErrCurrencyMismatch)

	assert.Empty(t, res.Model.Accounts)
	assert.True(t, res.Model.CurrentTotal().IsZero())
}

func TestEngine_CurrencyMismatchDropsWholeProfile(t *testing.T) {
	creds := &fakeCredentials{accounts: map[string]string{"dev": "111111111111", "prod": "222222222222"}}
	billing := newFakeBilling()
	billing.set("dev", "us-east-1", true, line("Amazon EC2", "20"))
	billing.set("prod", "us-east-1", true,
		line("Amazon EC2", "10"),
		entity.BillingLine{Service: "Amazon S3", Amount: dec("3"), Currency: "EUR"})
	billing.set("prod", "us-east-1", false, line("Amazon EC2", "8"))
	billing.set("prod", "eu-west-1", true, line("Amazon RDS", "5"))
	billing.set("prod", "eu-west-1", false, line("Amazon RDS", "4"))

	res, err := newTestEngine(creds, billing, nil, time.Second).Run(context.Background(), Request{
		Profiles: []string{"prod", "dev"},
		Regions:  []string{"us-east-1", "eu-west-1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "USD", res.Model.Currency)
	require.Len(t, res.Errors, 1)
	e := res.Errors[0]
	assert.Equal(t, entity.KindCurrencyMismatch, e.Kind)
	assert.Equal(t, "prod", e.Profile)
	assert.Equal(t, "us-east-1", e.Region)
	assert.Equal(t, "current", e.Period)

	require.Len(t, res.Model.Accounts, 1)
	rec := res.Model.Accounts[0]
	assert.Equal(t, []string{"dev"}, rec.ProfileNames)
	assert.Equal(t, "20", rec.CurrentTotal.String())
	assert.True(t, rec.PreviousTotal.IsZero())
}

func TestEngine_CurrencyMismatchAcrossProfiles(t *testing.T) {
	creds := &fakeCredentials{accounts: map[string]string{"us": "1", "eu": "2"}}
	billing := newFakeBilling()
	billing.set("us", entity.AllRegions, true, line("Amazon EC2", "10"))
	billing.set("eu", entity.AllRegions, true, entity.BillingLine{Service: "Amazon EC2", Amount: dec("9"), Currency: "EUR"})

	res, err := newTestEngine(creds, billing, nil, time.Second).Run(context.Background(), Request{Profiles: []string{"us", "eu"}})
	require.NoError(t, err)

	assert.Equal(t, "USD", res.Model.Currency)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, entity.KindCurrencyMismatch, res.Errors[0].Kind)
	assert.Equal(t, "eu", res.Errors[0].Profile)

	var mismatch *entity.CurrencyMismatchError
	require.ErrorAs(t, res.Errors[0], &mismatch)
	assert.Equal(t, "USD", mismatch.Expected)
	assert.Equal(t, "EUR", mismatch.Got)

	require.Len(t, res.Model.Accounts, 1)
	assert.Equal(t, "1", res.Model.Accounts[0].AccountID)
}

func TestEngine_TagFilterUsesResourceGranularity(t *testing.T) {
	creds := &fakeCredentials{accounts: map[string]string{"prod": "222222222222"}}
	billing := newFakeBilling()
	billing.set("prod", entity.AllRegions, true,
		resourceLine("Amazon EC2", "i-r1", "40"),
		resourceLine("Amazon EC2", "i-r2", "60"),
		resourceLine("Amazon S3", "logs-bucket", "5"))
	billing.set("prod", entity.AllRegions, false, resourceLine("Amazon EC2", "i-r1", "30"))
	inv := &fakeInventory{tags: map[string]map[string]string{
		"i-r1": {"Environment": "production"},
		"i-r2": {"Environment": "dev"},
	}}

	preds := []entity.TagPredicate{{Key: "Environment", Value: "production"}}
	res, err := newTestEngine(creds, billing, inv, time.Second).Run(context.Background(), Request{
		Profiles: []string{"prod"},
		Tags:     preds,
	})
	require.NoError(t, err)

	require.Len(t, res.Model.Accounts, 1)
	rec := res.Model.Accounts[0]
	assert.Equal(t, "40", rec.CurrentTotal.String())
	assert.Equal(t, "30", rec.PreviousTotal.String())
	assert.NotContains(t, rec.ByService, "Amazon S3")
	assert.Equal(t, preds, res.Model.AppliedFilters)

	for _, q := range billing.queries {
		assert.True(t, q.WithResources)
	}
	assert.Equal(t, int32(3), inv.calls.Load())
}

func TestEngine_TimeoutBecomesPartialFailure(t *testing.T) {
	creds := &fakeCredentials{accounts: map[string]string{"fast": "1", "slow": "2"}}
	billing := newFakeBilling()
	billing.set("fast", entity.AllRegions, true, line("Amazon EC2", "10"))
	billing.block["slow"] = true

	res, err := newTestEngine(creds, billing, nil, 20*time.Millisecond).Run(context.Background(), Request{
		Profiles: []string{"fast", "slow"},
	})
	require.NoError(t, err)

	require.Len(t, res.Errors, 2)
	for _, e := range res.Errors {
		assert.Equal(t, entity.KindPartialFetchFailure, e.Kind)
		assert.Equal(t, "slow", e.Profile)
		assert.ErrorIs(t, e, context.DeadlineExceeded)
	}
	require.Len(t, res.Model.Accounts, 1)
	assert.Equal(t, []string{"fast"}, res.Model.Accounts[0].ProfileNames)
	assert.Equal(t, "10", res.Model.Accounts[0].CurrentTotal.String())
}

func TestEngine_ProfileWithoutDataIsNotListed(t *testing.T) {
	creds := &fakeCredentials{accounts: map[string]string{"broken": "1", "idle": "2", "partial": "3"}}
	billing := newFakeBilling()
	billing.fail("broken", entity.AllRegions, true, errBoom)
	billing.fail("broken", entity.AllRegions, false, errBoom)
	billing.fail("partial", entity.AllRegions, true, errBoom)
	billing.set("partial", entity.AllRegions, false, line("Amazon EC2", "6"))

	res, err := newTestEngine(creds, billing, nil, time.Second).Run(context.Background(), Request{
		Profiles: []string{"broken", "idle", "partial"},
	})
	require.NoError(t, err)

	var listed []string
	for _, rec := range res.Model.Accounts {
		listed = append(listed, rec.ProfileNames...)
	}
	assert.ElementsMatch(t, []string{"idle", "partial"}, listed)
	assert.Len(t, res.Errors, 3)
	assert.Equal(t, 3, res.ResolvedProfiles)
}

func TestEngine_CreditNotesAreReported(t *testing.T) {
	creds := &fakeCredentials{accounts: map[string]string{"prod": "222222222222"}}
	billing := newFakeBilling()
	billing.set("prod", entity.AllRegions, true, line("Amazon EC2", "10"), line("Credits", "-15"))

	res, err := newTestEngine(creds, billing, nil, time.Second).Run(context.Background(), Request{Profiles: []string{"prod"}})
	require.NoError(t, err)

	require.Len(t, res.Model.Accounts, 1)
	assert.Equal(t, "10", res.Model.Accounts[0].CurrentTotal.String())
	require.Len(t, res.Errors, 1)
	assert.Equal(t, entity.KindCreditExcluded, res.Errors[0].Kind)
	assert.False(t, res.Failed())
}

func TestEngine_CancellationDiscardsPartialResults(t *testing.T) {
	creds := &fakeCredentials{accounts: map[string]string{"fast": "1", "slow": "2"}}
	billing := newFakeBilling()
	billing.set("fast", entity.AllRegions, true, line("Amazon EC2", "10"))
	billing.block["slow"] = true

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	res, err := newTestEngine(creds, billing, nil, time.Hour).Run(ctx, Request{Profiles: []string{"fast", "slow"}})

	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_BoundedConcurrency(t *testing.T) {
	accounts := map[string]string{}
	var profiles []string
	for _, p := range []string{"p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8"} {
		accounts[p] = "acct-" + p
		profiles = append(profiles, p)
	}
	creds := &fakeCredentials{accounts: accounts}
	billing := newFakeBilling()

	engine := NewEngine(creds, billing, nil, Config{Workers: 2, CallTimeout: time.Second, Now: fixedNow}, nil)
	res, err := engine.Run(context.Background(), Request{
		Profiles: append(profiles, "p1", "p2"),
		Regions:  []string{"us-east-1", "sa-east-1"},
	})
	require.NoError(t, err)

	assert.Equal(t, 8, res.Profiles)
	assert.Len(t, res.Model.Accounts, 8)
	assert.Equal(t, 8*2*2, billing.queryCount())
	assert.LessOrEqual(t, billing.maxFlight.Load(), int32(2))
}
