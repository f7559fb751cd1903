package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/diillson/aws-costlens/internal/domain/entity"
	"github.com/diillson/aws-costlens/internal/domain/repository"
	"github.com/diillson/aws-costlens/internal/shared/types"
)

var fixedNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

var errExpired = errors.New("ExpiredToken: the security token included in the request is expired")

type fakeAWS struct {
	mu sync.Mutex

	profiles    []string
	accounts    map[string]string
	identityErr map[string]error
	lines       map[string][]entity.BillingLine
	monthly     map[string][]entity.MonthlyCost
	budgets     map[string][]entity.BudgetInfo
	findings    map[string]map[entity.ScanCategory]entity.RegionFindings
	scanErrs    map[string][]*entity.RunError
	regions     []string

	identityCalls int
	monthlyCalls  []string
	scanRegions   map[string][]string
}

func newFakeAWS() *fakeAWS {
	return &fakeAWS{
		accounts:    map[string]string{},
		identityErr: map[string]error{},
		lines:       map[string][]entity.BillingLine{},
		monthly:     map[string][]entity.MonthlyCost{},
		budgets:     map[string][]entity.BudgetInfo{},
		findings:    map[string]map[entity.ScanCategory]entity.RegionFindings{},
		scanErrs:    map[string][]*entity.RunError{},
		scanRegions: map[string][]string{},
		regions:     []string{"us-east-1"},
	}
}

var _ repository.AWSRepository = (*fakeAWS)(nil)

func (f *fakeAWS) ListProfiles() []string { return f.profiles }

func (f *fakeAWS) ResolveIdentity(_ context.Context, profile string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.identityCalls++
	if err := f.identityErr[profile]; err != nil {
		return "", err
	}
	return f.accounts[profile], nil
}

func (f *fakeAWS) AccessibleRegions(context.Context, string) ([]string, error) {
	return f.regions, nil
}

func (f *fakeAWS) QueryCostByService(_ context.Context, q repository.CostQuery) ([]entity.BillingLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lines[q.Profile], nil
}

func (f *fakeAWS) MonthlyCosts(_ context.Context, profile string, _ int, _ []entity.TagPredicate) ([]entity.MonthlyCost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.monthlyCalls = append(f.monthlyCalls, profile)
	return f.monthly[profile], nil
}

func (f *fakeAWS) Budgets(_ context.Context, profile, _ string) ([]entity.BudgetInfo, error) {
	return f.budgets[profile], nil
}

func (f *fakeAWS) LookupTags(context.Context, entity.ResourceRef) (map[string]string, bool, error) {
	return nil, false, nil
}

func (f *fakeAWS) ScanResources(_ context.Context, profile string, regions []string) (map[entity.ScanCategory]entity.RegionFindings, []*entity.RunError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scanRegions[profile] = regions
	return f.findings[profile], f.scanErrs[profile]
}

type fakeExport struct {
	costReports []repository.CostReport
	scanReports [][]*entity.ScanReport
	trends      [][]repository.TrendSeries
	calls       []string
	fail        map[string]error
}

func newFakeExport() *fakeExport {
	return &fakeExport{fail: map[string]error{}}
}

func (f *fakeExport) record(kind, name, dir string) (string, error) {
	f.calls = append(f.calls, kind)
	if err := f.fail[kind]; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s.%s", dir, name, strings.SplitN(kind, "-", 2)[1]), nil
}

func (f *fakeExport) ExportToCSV(r repository.CostReport, name, dir string) (string, error) {
	f.costReports = append(f.costReports, r)
	return f.record("cost-csv", name, dir)
}

func (f *fakeExport) ExportToJSON(r repository.CostReport, name, dir string) (string, error) {
	f.costReports = append(f.costReports, r)
	return f.record("cost-json", name, dir)
}

func (f *fakeExport) ExportToPDF(r repository.CostReport, name, dir string) (string, error) {
	f.costReports = append(f.costReports, r)
	return f.record("cost-pdf", name, dir)
}

func (f *fakeExport) ExportScanReportToCSV(r []*entity.ScanReport, name, dir string) (string, error) {
	f.scanReports = append(f.scanReports, r)
	return f.record("scan-csv", name, dir)
}

func (f *fakeExport) ExportScanReportToJSON(r []*entity.ScanReport, name, dir string) (string, error) {
	f.scanReports = append(f.scanReports, r)
	return f.record("scan-json", name, dir)
}

func (f *fakeExport) ExportScanReportToPDF(r []*entity.ScanReport, name, dir string) (string, error) {
	f.scanReports = append(f.scanReports, r)
	return f.record("scan-pdf", name, dir)
}

func (f *fakeExport) ExportTrendToJSON(s []repository.TrendSeries, name, dir string) (string, error) {
	f.trends = append(f.trends, s)
	return f.record("trend-json", name, dir)
}

type upload struct {
	profile, path, bucket, key string
}

type fakeUploader struct {
	uploads *[]upload
	profile string
}

func (u fakeUploader) Upload(_ context.Context, localPath, bucket, key string) (string, error) {
	*u.uploads = append(*u.uploads, upload{u.profile, localPath, bucket, key})
	return "s3://" + bucket + "/" + key, nil
}

type fakeConsole struct {
	infos, warnings, errors, successes []string
	printed                            []string
	tables                             []*fakeTable
	trends                             [][]types.MonthlyCost
}

var _ types.ConsoleInterface = (*fakeConsole)(nil)

func (c *fakeConsole) Print(a ...interface{})                 { c.printed = append(c.printed, fmt.Sprint(a...)) }
func (c *fakeConsole) Printf(format string, a ...interface{}) { c.printed = append(c.printed, fmt.Sprintf(format, a...)) }
func (c *fakeConsole) Println(a ...interface{})               { c.printed = append(c.printed, fmt.Sprintln(a...)) }

func (c *fakeConsole) LogInfo(format string, a ...interface{}) {
	c.infos = append(c.infos, fmt.Sprintf(format, a...))
}

func (c *fakeConsole) LogWarning(format string, a ...interface{}) {
	c.warnings = append(c.warnings, fmt.Sprintf(format, a...))
}

func (c *fakeConsole) LogError(format string, a ...interface{}) {
	c.errors = append(c.errors, fmt.Sprintf(format, a...))
}

func (c *fakeConsole) LogSuccess(format string, a ...interface{}) {
	c.successes = append(c.successes, fmt.Sprintf(format, a...))
}

func (c *fakeConsole) Status(string) types.StatusHandle { return noopHandle{} }

func (c *fakeConsole) ProgressWithTotal(int, string) types.ProgressHandle { return noopHandle{} }

func (c *fakeConsole) CreateTable() types.TableInterface {
	t := &fakeTable{}
	c.tables = append(c.tables, t)
	return t
}

func (c *fakeConsole) DisplayTrendBars(_ string, costs []types.MonthlyCost) {
	c.trends = append(c.trends, costs)
}

type noopHandle struct{}

func (noopHandle) Update(string) {}
func (noopHandle) Increment()    {}
func (noopHandle) Stop()         {}

type fakeTable struct {
	columns []string
	rows    [][]string
}

func (t *fakeTable) AddColumn(name string, _ ...interface{}) { t.columns = append(t.columns, name) }

func (t *fakeTable) AddRow(cells ...interface{}) {
	row := make([]string, len(cells))
	for i, c := range cells {
		row[i] = fmt.Sprint(c)
	}
	t.rows = append(t.rows, row)
}

func (t *fakeTable) Render() string { return "table" }

func joined(msgs []string) string {
	return strings.Join(msgs, "\n")
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func usd(service, amount string) entity.BillingLine {
	return entity.BillingLine{Service: service, Amount: dec(amount), Currency: "USD"}
}

type harness struct {
	aws     *fakeAWS
	export  *fakeExport
	console *fakeConsole
	uploads []upload
	uc      *DashboardUseCase
}

func newHarness() *harness {
	h := &harness{aws: newFakeAWS(), export: newFakeExport(), console: &fakeConsole{}}
	h.uc = NewDashboardUseCase(h.aws, h.export, func(profile string) repository.Uploader {
		return fakeUploader{uploads: &h.uploads, profile: profile}
	}, h.console, nil)
	h.uc.now = func() time.Time { return fixedNow }
	return h
}
