package aggregation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/diillson/aws-costlens/internal/domain/entity"
	"github.com/diillson/aws-costlens/internal/domain/repository"
)

var errBoom = errors.New("boom")

// fixedNow is 2024-03-15; month-to-date current is March 1-15, previous is February.
func fixedNow() time.Time {
	return time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fakeCredentials struct {
	accounts map[string]string
	errs     map[string]error
	delay    time.Duration
	calls    atomic.Int32
}

func (f *fakeCredentials) ListProfiles() []string {
	out := make([]string, 0, len(f.accounts))
	for p := range f.accounts {
		out = append(out, p)
	}
	return out
}

func (f *fakeCredentials) ResolveIdentity(ctx context.Context, profile string) (string, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err, ok := f.errs[profile]; ok {
		return "", err
	}
	return f.accounts[profile], nil
}

func (f *fakeCredentials) AccessibleRegions(context.Context, string) ([]string, error) {
	return []string{"us-east-1"}, nil
}

// billingKey indexes canned responses; current is true for the March window.
type billingKey struct {
	profile string
	region  string
	current bool
}

type fakeBilling struct {
	mu        sync.Mutex
	responses map[billingKey][]entity.BillingLine
	errs      map[billingKey]error
	block     map[string]bool // perfis cujas consultas só retornam com ctx cancelado
	queries   []repository.CostQuery
	inFlight  atomic.Int32
	maxFlight atomic.Int32
}

func newFakeBilling() *fakeBilling {
	return &fakeBilling{
		responses: make(map[billingKey][]entity.BillingLine),
		errs:      make(map[billingKey]error),
		block:     make(map[string]bool),
	}
}

func (f *fakeBilling) set(profile, region string, current bool, lines ...entity.BillingLine) {
	f.responses[billingKey{profile, region, current}] = lines
}

func (f *fakeBilling) fail(profile, region string, current bool, err error) {
	f.errs[billingKey{profile, region, current}] = err
}

func (f *fakeBilling) QueryCostByService(ctx context.Context, q repository.CostQuery) ([]entity.BillingLine, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.maxFlight.Load()
		if n <= peak || f.maxFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	f.mu.Lock()
	f.queries = append(f.queries, q)
	blocked := f.block[q.Profile]
	f.mu.Unlock()

	if blocked {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	key := billingKey{q.Profile, q.Region, q.Interval.Start.Month() == time.March}
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	return f.responses[key], nil
}

func (f *fakeBilling) MonthlyCosts(context.Context, string, int, []entity.TagPredicate) ([]entity.MonthlyCost, error) {
	return nil, nil
}

func (f *fakeBilling) Budgets(context.Context, string, string) ([]entity.BudgetInfo, error) {
	return nil, nil
}

func (f *fakeBilling) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

type fakeInventory struct {
	tags  map[string]map[string]string
	errs  map[string]error
	calls atomic.Int32
}

func (f *fakeInventory) LookupTags(_ context.Context, ref entity.ResourceRef) (map[string]string, bool, error) {
	f.calls.Add(1)
	if err, ok := f.errs[ref.ResourceID]; ok {
		return nil, false, err
	}
	tags, ok := f.tags[ref.ResourceID]
	return tags, ok, nil
}

func line(service, amount string) entity.BillingLine {
	return entity.BillingLine{Service: service, Amount: dec(amount), Currency: "USD"}
}

func resourceLine(service, resourceID, amount string) entity.BillingLine {
	return entity.BillingLine{Service: service, ResourceID: resourceID, Amount: dec(amount), Currency: "USD"}
}

func resolvedSession(profile, accountID string) *entity.ProfileSession {
	s := entity.NewProfileSession(profile, nil)
	_ = s.SetAccountID(accountID)
	return s
}
