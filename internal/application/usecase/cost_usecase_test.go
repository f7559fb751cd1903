package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diillson/aws-costlens/internal/domain/entity"
	"github.com/diillson/aws-costlens/internal/shared/types"
)

func devProdHarness() *harness {
	h := newHarness()
	h.aws.profiles = []string{"dev", "prod"}
	h.aws.accounts["dev"] = "111111111111"
	h.aws.identityErr["prod"] = errExpired
	h.aws.lines["dev"] = []entity.BillingLine{usd("Amazon EC2", "120"), usd("Amazon S3", "30")}
	return h
}

func TestRunCostPartialSuccess(t *testing.T) {
	h := devProdHarness()
	args := &types.CLIArgs{Profiles: []string{"dev", "prod"}}

	require.NoError(t, h.uc.RunCost(context.Background(), args))

	assert.Contains(t, joined(h.console.infos), "Results for 1 of 2 profiles")
	assert.Contains(t, joined(h.console.errors), "Profile prod skipped")

	require.Len(t, h.console.tables, 1)
	table := h.console.tables[0]
	require.Len(t, table.rows, 1)
	assert.Equal(t, "111111111111", table.rows[0][0])
	assert.Equal(t, "dev", table.rows[0][1])
	assert.Equal(t, "$150.00", table.rows[0][3])
	assert.Contains(t, table.rows[0][5], "Amazon EC2: $120.00")
	assert.Contains(t, table.rows[0][6], "No budgets found")
	assert.Contains(t, table.columns[3], "2024-03-01 to 2024-03-15")
}

func TestRunCostNoProfilesResolved(t *testing.T) {
	h := devProdHarness()
	h.aws.identityErr["dev"] = errExpired

	err := h.uc.RunCost(context.Background(), &types.CLIArgs{Profiles: []string{"dev", "prod"}})
	assert.ErrorIs(t, err, types.ErrNoProfilesResolved)
	assert.Contains(t, joined(h.console.infos), "Results for 0 of 2 profiles")
	assert.Empty(t, h.console.tables)
}

func TestRunCostPreflightFailures(t *testing.T) {
	tests := []struct {
		name    string
		args    types.CLIArgs
		wantErr error
	}{
		{"bad tag", types.CLIArgs{Profiles: []string{"dev"}, Tag: []string{"novalue"}}, nil},
		{"bad time range", types.CLIArgs{Profiles: []string{"dev"}, TimeRange: "yesterday"}, entity.ErrInvalidTimeRange},
		{"bad report type", types.CLIArgs{Profiles: []string{"dev"}, ReportName: "r", ReportType: []string{"xlsx"}}, types.ErrUnsupportedReport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := devProdHarness()
			args := tt.args
			err := h.uc.RunCost(context.Background(), &args)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Zero(t, h.aws.identityCalls)
		})
	}
}

func TestRunCostMergeAndBudgets(t *testing.T) {
	h := newHarness()
	h.aws.profiles = []string{"dev", "dev-admin"}
	h.aws.accounts["dev"] = "111111111111"
	h.aws.accounts["dev-admin"] = "111111111111"
	h.aws.lines["dev"] = []entity.BillingLine{usd("Amazon EC2", "100")}
	h.aws.lines["dev-admin"] = []entity.BillingLine{usd("Amazon EC2", "20")}
	h.aws.budgets["dev"] = []entity.BudgetInfo{{Name: "monthly", Limit: dec("100"), Actual: dec("140")}}

	require.NoError(t, h.uc.RunCost(context.Background(), &types.CLIArgs{Profiles: []string{"dev", "dev-admin"}, Merge: true}))

	rows := h.console.tables[0].rows
	require.Len(t, rows, 1)
	assert.Equal(t, "dev\ndev-admin", rows[0][1])
	assert.Equal(t, "$120.00", rows[0][3])
	assert.Contains(t, rows[0][6], "monthly limit: $100.00")
	assert.Contains(t, rows[0][6], "monthly actual: $140.00")
}

func TestRunCostExportsAndUploads(t *testing.T) {
	h := devProdHarness()
	args := &types.CLIArgs{
		Profiles:   []string{"dev", "prod"},
		ReportName: "costs",
		ReportType: []string{"csv", "json"},
		Dir:        "/out",
		S3Bucket:   "reports",
		S3Prefix:   "finops",
	}

	require.NoError(t, h.uc.RunCost(context.Background(), args))

	assert.Equal(t, []string{"cost-csv", "cost-json"}, h.export.calls)
	require.Len(t, h.export.costReports, 2)
	report := h.export.costReports[0]
	assert.Len(t, report.Model.Accounts, 1)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, entity.KindIdentityUnresolved, report.Errors[0].Kind)

	require.Len(t, h.uploads, 2)
	assert.Equal(t, upload{profile: "dev", path: "/out/costs.csv", bucket: "reports", key: "finops/costs.csv"}, h.uploads[0])
}

func TestRunCostExportFailureDoesNotFailCommand(t *testing.T) {
	h := devProdHarness()
	h.export.fail["cost-pdf"] = assert.AnError

	err := h.uc.RunCost(context.Background(), &types.CLIArgs{Profiles: []string{"dev"}, ReportName: "r", ReportType: []string{"pdf"}})
	require.NoError(t, err)
	assert.Contains(t, joined(h.console.errors), "Failed to export to PDF")
}

func TestRunExport(t *testing.T) {
	h := devProdHarness()
	args := &types.CLIArgs{Profiles: []string{"dev"}}

	require.NoError(t, h.uc.RunExport(context.Background(), args))
	assert.Equal(t, []string{"cost-json"}, h.export.calls)
	assert.Equal(t, defaultReportName, args.ReportName)
	assert.Empty(t, h.console.tables)

	h.export.fail["cost-json"] = assert.AnError
	err := h.uc.RunExport(context.Background(), &types.CLIArgs{Profiles: []string{"dev"}})
	assert.ErrorContains(t, err, "export failed for: json")
}

func TestFormatBudgetInfo(t *testing.T) {
	lines := formatBudgetInfo("USD", []entity.BudgetInfo{
		{Name: "ops", Limit: dec("50"), Actual: dec("10"), Forecast: dec("45")},
	})
	assert.Equal(t, []string{"ops limit: $50.00", "ops actual: $10.00", "ops forecast: $45.00"}, lines)
	assert.Equal(t, []string{"No budgets found;\nCreate a budget for this account"}, formatBudgetInfo("USD", nil))
}

func TestServiceLinesEmptyAccount(t *testing.T) {
	assert.Equal(t, []string{"No costs associated with this account"}, serviceLines(entity.AccountCostRecord{}))
}
