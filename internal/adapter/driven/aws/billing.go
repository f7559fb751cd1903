package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/budgets"
	budgetsTypes "github.com/aws/aws-sdk-go-v2/service/budgets/types"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	ceTypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/diillson/aws-costlens/internal/domain/entity"
	"github.com/diillson/aws-costlens/internal/domain/repository"
)

const (
	costMetric = "UnblendedCost"
	// resourceWindowDays é quanto o Cost Explorer guarda de dados por recurso.
	resourceWindowDays = 14
	noResourceID       = "NoResourceId"
)

// minAmount descarta ruído de arredondamento do Cost Explorer.
var minAmount = decimal.New(1, -3)

// QueryCostByService returns per-service spend for the interval.
//
// With WithResources set and the run inside the resource-level retention
// window, lines carry the RESOURCE_ID so tags can be joined later. Outside the
// window the tag predicates are pushed down to Cost Explorer and each line
// carries the matched tags instead. The choice is made on q.WindowStart, so
// both periods of a run go through the same path.
func (r *AWSRepositoryImpl) QueryCostByService(ctx context.Context, q repository.CostQuery) ([]entity.BillingLine, error) {
	ceClient, err := r.costExplorer(ctx, q.Profile)
	if err != nil {
		return nil, err
	}

	period := &ceTypes.DateInterval{
		Start: aws.String(q.Interval.Start.Format(entity.DateLayout)),
		End:   aws.String(q.Interval.End.Format(entity.DateLayout)),
	}
	plan := planCostQuery(q, time.Now())

	if plan.withResources {
		return r.queryWithResources(ctx, ceClient, q.Profile, period, plan.filter)
	}

	var lines []entity.BillingLine
	var token *string
	for {
		if err := r.waitCostExplorer(ctx, q.Profile); err != nil {
			return nil, err
		}
		out, err := ceClient.GetCostAndUsage(ctx, &costexplorer.GetCostAndUsageInput{
			TimePeriod:  period,
			Granularity: ceTypes.GranularityMonthly,
			Metrics:     []string{costMetric},
			GroupBy: []ceTypes.GroupDefinition{
				{Type: ceTypes.GroupDefinitionTypeDimension, Key: aws.String("SERVICE")},
			},
			Filter:        plan.filter,
			NextPageToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("cost explorer query for profile %s: %w", q.Profile, err)
		}
		page, err := linesFromResults(out.ResultsByTime, false, plan.matched)
		if err != nil {
			return nil, err
		}
		lines = append(lines, page...)

		token = out.NextPageToken
		if aws.ToString(token) == "" {
			break
		}
	}
	return lines, nil
}

// costPlan é o caminho e o filtro de uma consulta de custo.
type costPlan struct {
	withResources bool
	filter        *ceTypes.Expression
	matched       map[string]string
}

// planCostQuery decide o caminho da consulta. Consultas com tags sempre
// restringem a RECORD_TYPE=Usage, em qualquer caminho, para que os períodos
// sejam comparáveis.
func planCostQuery(q repository.CostQuery, now time.Time) costPlan {
	region := regionExpression(q.Region)
	if !q.WithResources {
		return costPlan{filter: andExpression(region, tagExpression(q.Tags))}
	}
	if withinResourceWindow(q.WindowStart(), now) {
		return costPlan{withResources: true, filter: andExpression(region, usageOnlyExpression())}
	}

	plan := costPlan{filter: andExpression(region, usageOnlyExpression(), tagExpression(q.Tags))}
	if len(q.Tags) > 0 {
		plan.matched = make(map[string]string, len(q.Tags))
		for _, p := range q.Tags {
			plan.matched[p.Key] = p.Value
		}
	}
	return plan
}

func (r *AWSRepositoryImpl) queryWithResources(
	ctx context.Context,
	ceClient *costexplorer.Client,
	profile string,
	period *ceTypes.DateInterval,
	filter *ceTypes.Expression,
) ([]entity.BillingLine, error) {
	var lines []entity.BillingLine
	var token *string
	for {
		if err := r.waitCostExplorer(ctx, profile); err != nil {
			return nil, err
		}
		out, err := ceClient.GetCostAndUsageWithResources(ctx, &costexplorer.GetCostAndUsageWithResourcesInput{
			TimePeriod:  period,
			Granularity: ceTypes.GranularityMonthly,
			Metrics:     []string{costMetric},
			GroupBy: []ceTypes.GroupDefinition{
				{Type: ceTypes.GroupDefinitionTypeDimension, Key: aws.String("SERVICE")},
				{Type: ceTypes.GroupDefinitionTypeDimension, Key: aws.String("RESOURCE_ID")},
			},
			Filter:        filter,
			NextPageToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("cost explorer resource query for profile %s: %w", profile, err)
		}
		page, err := linesFromResults(out.ResultsByTime, true, nil)
		if err != nil {
			return nil, err
		}
		lines = append(lines, page...)

		token = out.NextPageToken
		if aws.ToString(token) == "" {
			break
		}
	}
	r.logger.Debug("resource-level cost query", zap.String("profile", profile), zap.Int("lines", len(lines)))
	return lines, nil
}

// linesFromResults achata os grupos de todos os intervalos retornados; um
// intervalo que cruza meses volta como vários ResultByTime.
func linesFromResults(results []ceTypes.ResultByTime, withResources bool, tags map[string]string) ([]entity.BillingLine, error) {
	var lines []entity.BillingLine
	for _, rbt := range results {
		for _, group := range rbt.Groups {
			if len(group.Keys) == 0 {
				continue
			}
			metric, ok := group.Metrics[costMetric]
			if !ok || metric.Amount == nil {
				continue
			}
			amount, err := decimal.NewFromString(aws.ToString(metric.Amount))
			if err != nil {
				return nil, fmt.Errorf("invalid amount %q for %s: %w", aws.ToString(metric.Amount), group.Keys[0], err)
			}
			if amount.Abs().LessThan(minAmount) {
				continue
			}

			line := entity.BillingLine{
				Service:  group.Keys[0],
				Amount:   amount,
				Currency: aws.ToString(metric.Unit),
				Tags:     tags,
			}
			if withResources && len(group.Keys) > 1 && group.Keys[1] != noResourceID {
				line.ResourceID = group.Keys[1]
			}
			lines = append(lines, line)
		}
	}
	return lines, nil
}

func withinResourceWindow(start, now time.Time) bool {
	oldest := entity.TruncateDate(now).AddDate(0, 0, -resourceWindowDays)
	return !start.Before(oldest)
}

func regionExpression(region string) *ceTypes.Expression {
	if region == entity.AllRegions {
		return nil
	}
	return &ceTypes.Expression{
		Dimensions: &ceTypes.DimensionValues{
			Key:    ceTypes.DimensionRegion,
			Values: []string{region},
		},
	}
}

func usageOnlyExpression() *ceTypes.Expression {
	return &ceTypes.Expression{
		Dimensions: &ceTypes.DimensionValues{
			Key:    ceTypes.DimensionRecordType,
			Values: []string{"Usage"},
		},
	}
}

func tagExpression(preds []entity.TagPredicate) *ceTypes.Expression {
	if len(preds) == 0 {
		return nil
	}
	exprs := make([]*ceTypes.Expression, 0, len(preds))
	for _, p := range preds {
		exprs = append(exprs, &ceTypes.Expression{
			Tags: &ceTypes.TagValues{
				Key:    aws.String(p.Key),
				Values: []string{p.Value},
			},
		})
	}
	return andExpression(exprs...)
}

// andExpression combina as expressões não nulas; o Cost Explorer rejeita And com um único item.
func andExpression(exprs ...*ceTypes.Expression) *ceTypes.Expression {
	var parts []ceTypes.Expression
	for _, e := range exprs {
		if e != nil {
			parts = append(parts, *e)
		}
	}
	switch len(parts) {
	case 0:
		return nil
	case 1:
		return &parts[0]
	default:
		return &ceTypes.Expression{And: parts}
	}
}

// MonthlyCosts returns the monthly spend for the last months, current month included.
func (r *AWSRepositoryImpl) MonthlyCosts(ctx context.Context, profile string, months int, tags []entity.TagPredicate) ([]entity.MonthlyCost, error) {
	ceClient, err := r.costExplorer(ctx, profile)
	if err != nil {
		return nil, err
	}

	start, end := trendWindow(time.Now(), months)

	var costs []entity.MonthlyCost
	var token *string
	for {
		if err := r.waitCostExplorer(ctx, profile); err != nil {
			return nil, err
		}
		out, err := ceClient.GetCostAndUsage(ctx, &costexplorer.GetCostAndUsageInput{
			TimePeriod: &ceTypes.DateInterval{
				Start: aws.String(start.Format(entity.DateLayout)),
				End:   aws.String(end.Format(entity.DateLayout)),
			},
			Granularity:   ceTypes.GranularityMonthly,
			Metrics:       []string{costMetric},
			Filter:        tagExpression(tags),
			NextPageToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("cost trend query for profile %s: %w", profile, err)
		}
		page, err := monthlyFromResults(out.ResultsByTime)
		if err != nil {
			return nil, err
		}
		costs = append(costs, page...)

		token = out.NextPageToken
		if aws.ToString(token) == "" {
			break
		}
	}
	return costs, nil
}

// trendWindow começa no primeiro dia de months-1 meses atrás e termina hoje.
func trendWindow(now time.Time, months int) (time.Time, time.Time) {
	if months < 1 {
		months = 1
	}
	today := entity.TruncateDate(now)
	start := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)
	end := today
	if !end.After(start) || end.Day() == 1 {
		end = end.AddDate(0, 0, 1)
	}
	return start, end
}

func monthlyFromResults(results []ceTypes.ResultByTime) ([]entity.MonthlyCost, error) {
	costs := make([]entity.MonthlyCost, 0, len(results))
	for _, period := range results {
		if period.TimePeriod == nil {
			continue
		}
		month, err := time.Parse(entity.DateLayout, aws.ToString(period.TimePeriod.Start))
		if err != nil {
			return nil, fmt.Errorf("invalid period start %q: %w", aws.ToString(period.TimePeriod.Start), err)
		}
		cost := decimal.Zero
		if metric, ok := period.Total[costMetric]; ok && metric.Amount != nil {
			cost, err = decimal.NewFromString(aws.ToString(metric.Amount))
			if err != nil {
				return nil, fmt.Errorf("invalid amount for %s: %w", month.Format("Jan 2006"), err)
			}
		}
		costs = append(costs, entity.MonthlyCost{Month: month.Format("Jan 2006"), Cost: cost})
	}
	return costs, nil
}

// Budgets lists the account budgets. Access denied is not an error for the caller.
func (r *AWSRepositoryImpl) Budgets(ctx context.Context, profile, accountID string) ([]entity.BudgetInfo, error) {
	client, err := r.getServiceClient(ctx, profile, "", "budgets")
	if err != nil {
		return nil, err
	}
	budgetsClient := client.(*budgets.Client)

	var out []entity.BudgetInfo
	p := budgets.NewDescribeBudgetsPaginator(budgetsClient, &budgets.DescribeBudgetsInput{
		AccountId: aws.String(accountID),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			r.logger.Debug("describe budgets failed", zap.String("profile", profile), zap.Error(err))
			return out, nil
		}
		for _, b := range page.Budgets {
			out = append(out, budgetFromAWS(b))
		}
	}
	return out, nil
}

func budgetFromAWS(b budgetsTypes.Budget) entity.BudgetInfo {
	info := entity.BudgetInfo{Name: aws.ToString(b.BudgetName)}
	info.Limit = spendAmount(b.BudgetLimit)
	if b.CalculatedSpend != nil {
		info.Actual = spendAmount(b.CalculatedSpend.ActualSpend)
		info.Forecast = spendAmount(b.CalculatedSpend.ForecastedSpend)
	}
	return info
}

func spendAmount(s *budgetsTypes.Spend) decimal.Decimal {
	if s == nil || s.Amount == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(aws.ToString(s.Amount))
	if err != nil {
		return decimal.Zero
	}
	return d
}
