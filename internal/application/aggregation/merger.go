package aggregation

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/diillson/aws-costlens/internal/domain/entity"
)

// ProfileResult pairs a session with the line items fetched through it.
type ProfileResult struct {
	Session *entity.ProfileSession
	Items   []entity.CostLineItem
}

type serviceBucket struct {
	current  decimal.Decimal
	previous decimal.Decimal
}

// accountAccumulator é preenchido durante o reduce e congelado em finalize.
type accountAccumulator struct {
	accountID string
	profiles  []string
	seen      map[string]bool
	currency  string
	services  map[string]*serviceBucket
}

func newAccountAccumulator(accountID string) *accountAccumulator {
	return &accountAccumulator{
		accountID: accountID,
		seen:      make(map[string]bool),
		services:  make(map[string]*serviceBucket),
	}
}

func (a *accountAccumulator) addProfile(name string) {
	if a.seen[name] {
		return
	}
	a.seen[name] = true
	a.profiles = append(a.profiles, name)
}

func (a *accountAccumulator) add(item entity.CostLineItem) {
	if a.currency == "" {
		a.currency = item.Currency
	}
	b, ok := a.services[item.Service]
	if !ok {
		b = &serviceBucket{}
		a.services[item.Service] = b
	}
	switch item.Period {
	case entity.PeriodCurrent:
		b.current = b.current.Add(item.Amount)
	case entity.PeriodPrevious:
		b.previous = b.previous.Add(item.Amount)
	}
}

func (a *accountAccumulator) finalize() entity.AccountCostRecord {
	rec := entity.AccountCostRecord{
		AccountID:     a.accountID,
		ProfileNames:  append([]string(nil), a.profiles...),
		Currency:      a.currency,
		CurrentTotal:  decimal.Zero,
		PreviousTotal: decimal.Zero,
		ByService:     make(map[string]entity.ServiceCost, len(a.services)),
	}
	for name, b := range a.services {
		rec.ByService[name] = entity.ServiceCost{
			Service:  name,
			Current:  b.current,
			Previous: b.previous,
			Delta:    b.current.Sub(b.previous),
			DeltaPct: entity.NewPercentChange(b.current, b.previous),
		}
		rec.CurrentTotal = rec.CurrentTotal.Add(b.current)
		rec.PreviousTotal = rec.PreviousTotal.Add(b.previous)
	}
	rec.Delta = rec.CurrentTotal.Sub(rec.PreviousTotal)
	rec.DeltaPct = entity.NewPercentChange(rec.CurrentTotal, rec.PreviousTotal)
	return rec
}

// MergeAccounts reduces per-profile results into account records.
//
// With merge=true, profiles resolving to the same account id collapse into a
// single record listing every alias. With merge=false each profile keeps its
// own record even when account ids coincide. Unresolved sessions are skipped.
// Records are ordered by current total desc, then account id, then first profile.
func MergeAccounts(results []ProfileResult, merge bool) []entity.AccountCostRecord {
	accs := make(map[string]*accountAccumulator)
	var order []string

	for _, r := range results {
		if r.Session == nil || !r.Session.Resolved() {
			continue
		}
		accountID := r.Session.AccountID()
		key := accountID
		if !merge {
			key = accountID + "\x00" + r.Session.ProfileName
		}

		acc, ok := accs[key]
		if !ok {
			acc = newAccountAccumulator(accountID)
			accs[key] = acc
			order = append(order, key)
		}
		acc.addProfile(r.Session.ProfileName)
		for _, item := range r.Items {
			acc.add(item)
		}
	}

	records := make([]entity.AccountCostRecord, 0, len(order))
	for _, key := range order {
		records = append(records, accs[key].finalize())
	}

	sort.SliceStable(records, func(i, j int) bool {
		if c := records[i].CurrentTotal.Cmp(records[j].CurrentTotal); c != 0 {
			return c > 0
		}
		if records[i].AccountID != records[j].AccountID {
			return records[i].AccountID < records[j].AccountID
		}
		return records[i].ProfileNames[0] < records[j].ProfileNames[0]
	})
	return records
}
