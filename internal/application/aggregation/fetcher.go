package aggregation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/diillson/aws-costlens/internal/domain/entity"
	"github.com/diillson/aws-costlens/internal/domain/repository"
)

// DefaultCallTimeout limita cada chamada externa individual.
const DefaultCallTimeout = 30 * time.Second

// CostFetcher retrieves cost-by-service line items for a session.
type CostFetcher struct {
	billing repository.BillingService
	timeout time.Duration
	logger  *zap.Logger
}

// NewCostFetcher cria o fetcher; timeout <= 0 desativa o limite por chamada.
func NewCostFetcher(billing repository.BillingService, timeout time.Duration, logger *zap.Logger) *CostFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CostFetcher{billing: billing, timeout: timeout, logger: logger}
}

// Fetch issues one billing query for (session, region, period) and tags every
// returned line with the session identity. Non-empty tags request resource-level
// data for the tag filter. A response mixing currencies fails with
// entity.ErrCurrencyMismatch.
//
// Service lines with a negative net amount (credits larger than usage) stay out
// of the items and come back as CreditExcluded notes.
func (f *CostFetcher) Fetch(
	ctx context.Context,
	session *entity.ProfileSession,
	region string,
	period entity.Period,
	periods entity.PeriodPair,
	tags []entity.TagPredicate,
) ([]entity.CostLineItem, []*entity.RunError, error) {
	if !session.Resolved() {
		return nil, nil, fmt.Errorf("%w: profile %s", entity.ErrIdentityUnresolved, session.ProfileName)
	}

	callCtx, cancel := withCallTimeout(ctx, f.timeout)
	defer cancel()

	lines, err := f.billing.QueryCostByService(callCtx, repository.CostQuery{
		Profile:       session.ProfileName,
		Region:        region,
		Interval:      periods.Range(period),
		WithResources: len(tags) > 0,
		Tags:          tags,
		Since:         periods.Earliest(),
	})
	if err != nil {
		return nil, nil, err
	}

	items := make([]entity.CostLineItem, 0, len(lines))
	var notes []*entity.RunError
	currency := ""
	for _, line := range lines {
		if currency == "" {
			currency = line.Currency
		} else if line.Currency != currency {
			return nil, nil, &entity.CurrencyMismatchError{Expected: currency, Got: line.Currency}
		}
		if line.Amount.IsNegative() {
			f.logger.Debug("excluding negative billing line",
				zap.String("profile", session.ProfileName),
				zap.String("service", line.Service),
				zap.String("amount", line.Amount.String()))
			notes = append(notes, entity.NewRunError(entity.KindCreditExcluded, session.ProfileName, regionLabel(region), &period,
				fmt.Errorf("%s net amount %s %s left out of totals", line.Service, line.Amount.StringFixed(2), line.Currency)))
			continue
		}
		items = append(items, entity.CostLineItem{
			Service:    line.Service,
			Amount:     line.Amount,
			Currency:   line.Currency,
			AccountID:  session.AccountID(),
			Profile:    session.ProfileName,
			Region:     region,
			Period:     period,
			ResourceID: line.ResourceID,
			Tags:       line.Tags,
		})
	}
	return items, notes, nil
}

// FetchCosts runs Fetch sequentially over regions for one period, collecting
// per-region failures instead of aborting.
func (f *CostFetcher) FetchCosts(
	ctx context.Context,
	session *entity.ProfileSession,
	regions []string,
	period entity.Period,
	periods entity.PeriodPair,
	tags []entity.TagPredicate,
) ([]entity.CostLineItem, []*entity.RunError) {
	var items []entity.CostLineItem
	var errs []*entity.RunError
	for _, region := range regions {
		got, notes, err := f.Fetch(ctx, session, region, period, periods, tags)
		if err != nil {
			errs = append(errs, fetchError(session.ProfileName, region, period, err))
			continue
		}
		items = append(items, got...)
		errs = append(errs, notes...)
	}
	return items, errs
}

// fetchError classifica uma falha de consulta; CurrencyMismatch é mantido
// distinto para que o chamador saiba o motivo da exclusão.
func fetchError(profile, region string, period entity.Period, err error) *entity.RunError {
	kind := entity.KindPartialFetchFailure
	if errors.Is(err, entity.ErrCurrencyMismatch) {
		kind = entity.KindCurrencyMismatch
	}
	return entity.NewRunError(kind, profile, regionLabel(region), &period, err)
}

func regionLabel(region string) string {
	if region == entity.AllRegions {
		return "all"
	}
	return region
}
