package aggregation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/diillson/aws-costlens/internal/domain/entity"
	"github.com/diillson/aws-costlens/internal/domain/repository"
)

// Config ajusta o motor de agregação.
type Config struct {
	Workers     int
	CallTimeout time.Duration
	Now         func() time.Time
}

// Request is one aggregation run.
type Request struct {
	Profiles []string
	Regions  []string
	TimeSpec string
	Merge    bool
	Tags     []entity.TagPredicate
}

// Result carries the model plus every non-fatal error of the run.
type Result struct {
	Model            entity.NormalizedCostModel
	Errors           []*entity.RunError
	Sessions         []*entity.ProfileSession
	Profiles         int
	ResolvedProfiles int
}

// Failed reports whether no profile could be resolved.
func (r *Result) Failed() bool {
	return r.ResolvedProfiles == 0
}

// Engine orquestra resolução de sessões, coleta concorrente, filtro e merge.
type Engine struct {
	resolver *SessionResolver
	fetcher  *CostFetcher
	filter   *TagFilter
	times    *TimeRangeResolver
	workers  int
	logger   *zap.Logger
}

// NewEngine wires the engine collaborators.
func NewEngine(
	credentials repository.CredentialProvider,
	billing repository.BillingService,
	inventory repository.InventoryService,
	cfg Config,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers < 1 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	return &Engine{
		resolver: NewSessionResolver(credentials, cfg.CallTimeout, logger),
		fetcher:  NewCostFetcher(billing, cfg.CallTimeout, logger),
		filter:   NewTagFilter(inventory, cfg.CallTimeout, logger),
		times:    NewTimeRangeResolver(cfg.Now),
		workers:  cfg.Workers,
		logger:   logger,
	}
}

type fetchTask struct {
	session *entity.ProfileSession
	region  string
	period  entity.Period
}

// Run executes one aggregation. Invalid input returns an error and no result.
// Per-profile and per-call failures are reported in Result.Errors. A cancelled
// ctx discards partial data and returns ctx.Err().
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	profiles := dedupe(req.Profiles)
	if len(profiles) == 0 {
		return nil, entity.ErrEmptyProfileList
	}

	periods, err := e.times.Resolve(req.TimeSpec)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := e.logger.With(zap.String("run_id", runID))
	log.Info("aggregation started",
		zap.Strings("profiles", profiles),
		zap.Strings("regions", req.Regions),
		zap.String("current", periods.Current.String()),
		zap.String("previous", periods.Previous.String()),
		zap.Bool("merge", req.Merge),
		zap.Int("tags", len(req.Tags)))

	sessions, runErrs, err := e.resolver.ResolveAll(ctx, profiles, req.Regions, e.workers)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Sessions: sessions,
		Profiles: len(profiles),
		Model: entity.NormalizedCostModel{
			RunID:          runID,
			GeneratedAt:    e.now(),
			Accounts:       []entity.AccountCostRecord{},
			Periods:        periods,
			AppliedFilters: req.Tags,
			Merged:         req.Merge,
		},
	}

	var resolved []*entity.ProfileSession
	for _, s := range sessions {
		if s.Resolved() {
			resolved = append(resolved, s)
		}
	}
	result.ResolvedProfiles = len(resolved)

	if len(resolved) == 0 {
		runErrs = append(runErrs, entity.NewRunError(entity.KindNoProfilesResolved, "", "", nil,
			fmt.Errorf("none of %d profiles resolved an identity", len(profiles))))
		result.Errors = sortRunErrors(runErrs)
		log.Warn("no profiles resolved", zap.Int("profiles", len(profiles)))
		return result, nil
	}

	var tasks []fetchTask
	for _, s := range resolved {
		for _, region := range s.Regions {
			for _, p := range []entity.Period{entity.PeriodCurrent, entity.PeriodPrevious} {
				tasks = append(tasks, fetchTask{session: s, region: region, period: p})
			}
		}
	}

	var items collector[entity.CostLineItem]
	var fetchErrs collector[*entity.RunError]
	var fetched collector[string]

	err = runBounded(ctx, e.workers, len(tasks), func(ctx context.Context, i int) {
		t := tasks[i]
		got, notes, err := e.fetcher.Fetch(ctx, t.session, t.region, t.period, periods, req.Tags)
		if err != nil {
			log.Warn("cost fetch failed",
				zap.String("profile", t.session.ProfileName),
				zap.String("region", regionLabel(t.region)),
				zap.Stringer("period", t.period),
				zap.Error(err))
			fetchErrs.add(fetchError(t.session.ProfileName, t.region, t.period, err))
			return
		}
		items.add(got...)
		fetchErrs.add(notes...)
		fetched.add(t.session.ProfileName)
	})
	if err != nil {
		log.Warn("aggregation cancelled", zap.Error(err))
		return nil, err
	}
	fetchFailures := fetchErrs.snapshot()
	runErrs = append(runErrs, fetchFailures...)

	order := make(map[string]int, len(profiles))
	for i, p := range profiles {
		order[p] = i
	}
	all := items.snapshot()
	sortItems(all, order)

	// Um perfil com CurrencyMismatch em qualquer consulta perde todos os dados.
	mismatched := make(map[string]bool)
	for _, fe := range fetchFailures {
		if fe.Kind == entity.KindCurrencyMismatch {
			mismatched[fe.Profile] = true
		}
	}

	currency, kept, currencyErrs, rejected := reconcileCurrency(all, profiles, mismatched)
	runErrs = append(runErrs, currencyErrs...)
	result.Model.Currency = currency

	filtered, tagErrs := e.filter.Apply(ctx, kept, req.Tags)
	runErrs = append(runErrs, tagErrs...)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	byProfile := make(map[string][]entity.CostLineItem, len(resolved))
	for _, it := range filtered {
		byProfile[it.Profile] = append(byProfile[it.Profile], it)
	}
	// Sem nenhuma consulta bem-sucedida, ou com a moeda rejeitada, o perfil não
	// tem dado; ele aparece só nos erros, não como uma conta zerada.
	withData := make(map[string]bool, len(resolved))
	for _, p := range fetched.snapshot() {
		withData[p] = true
	}
	results := make([]ProfileResult, 0, len(resolved))
	for _, s := range resolved {
		if !withData[s.ProfileName] || rejected[s.ProfileName] {
			log.Debug("profile has no usable cost data", zap.String("profile", s.ProfileName))
			continue
		}
		results = append(results, ProfileResult{Session: s, Items: byProfile[s.ProfileName]})
	}

	result.Model.Accounts = MergeAccounts(results, req.Merge)
	result.Errors = sortRunErrors(runErrs)

	log.Info("aggregation finished",
		zap.Int("accounts", len(result.Model.Accounts)),
		zap.Int("resolved_profiles", result.ResolvedProfiles),
		zap.Int("items", len(filtered)),
		zap.Int("errors", len(result.Errors)),
		zap.String("current_total", result.Model.CurrentTotal().StringFixed(2)),
		zap.String("currency", currency))
	return result, nil
}

func (e *Engine) now() time.Time {
	return e.times.now().UTC()
}

// reconcileCurrency picks the currency of the first profile (in request order)
// with data and drops every profile reporting a different one. Profiles in
// mismatched already failed a query on mixed currencies: all of their items are
// dropped and they do not take part in picking the run currency.
func reconcileCurrency(
	items []entity.CostLineItem,
	profiles []string,
	mismatched map[string]bool,
) (string, []entity.CostLineItem, []*entity.RunError, map[string]bool) {
	profileCurrency := make(map[string]string)
	for _, it := range items {
		if mismatched[it.Profile] {
			continue
		}
		if _, ok := profileCurrency[it.Profile]; !ok {
			profileCurrency[it.Profile] = it.Currency
		}
	}

	currency := ""
	for _, p := range profiles {
		if c, ok := profileCurrency[p]; ok {
			currency = c
			break
		}
	}

	rejected := make(map[string]bool, len(mismatched))
	for p := range mismatched {
		rejected[p] = true
	}
	got := make(map[string]string)
	for _, it := range items {
		if rejected[it.Profile] || it.Currency == currency {
			continue
		}
		if _, ok := got[it.Profile]; !ok {
			got[it.Profile] = it.Currency
		}
	}

	var errs []*entity.RunError
	for _, p := range profiles {
		if c, ok := got[p]; ok {
			rejected[p] = true
			errs = append(errs, entity.NewRunError(entity.KindCurrencyMismatch, p, "", nil,
				&entity.CurrencyMismatchError{Expected: currency, Got: c}))
		}
	}
	if len(rejected) == 0 {
		return currency, items, nil, rejected
	}

	kept := make([]entity.CostLineItem, 0, len(items))
	for _, it := range items {
		if !rejected[it.Profile] {
			kept = append(kept, it)
		}
	}
	return currency, kept, errs, rejected
}

func sortItems(items []entity.CostLineItem, order map[string]int) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Profile != b.Profile {
			return order[a.Profile] < order[b.Profile]
		}
		if a.Region != b.Region {
			return a.Region < b.Region
		}
		if a.Period != b.Period {
			return a.Period < b.Period
		}
		if a.Service != b.Service {
			return a.Service < b.Service
		}
		return a.ResourceID < b.ResourceID
	})
}

func sortRunErrors(errs []*entity.RunError) []*entity.RunError {
	sort.SliceStable(errs, func(i, j int) bool {
		a, b := errs[i], errs[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Profile != b.Profile {
			return a.Profile < b.Profile
		}
		if a.Region != b.Region {
			return a.Region < b.Region
		}
		if a.Period != b.Period {
			return a.Period < b.Period
		}
		return a.Reason() < b.Reason()
	})
	return errs
}

func dedupe(profiles []string) []string {
	seen := make(map[string]bool, len(profiles))
	out := make([]string, 0, len(profiles))
	for _, p := range profiles {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
