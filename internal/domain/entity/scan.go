package entity

import "sort"

// ScanCategory names one resource-scan detector.
type ScanCategory string

const (
	ScanStoppedInstances     ScanCategory = "Stopped EC2 Instances"
	ScanUnusedVolumes        ScanCategory = "Unused EBS Volumes"
	ScanUnusedEIPs           ScanCategory = "Unused Elastic IPs"
	ScanUntaggedEC2          ScanCategory = "Untagged EC2"
	ScanUntaggedRDS          ScanCategory = "Untagged RDS"
	ScanUntaggedLambda       ScanCategory = "Untagged Lambda"
	ScanIdleLoadBalancers    ScanCategory = "Idle Load Balancers"
	ScanLogGroupsNoRetention ScanCategory = "Log Groups Without Retention"
)

// ScanCategories é a ordem de exibição/exportação das categorias.
var ScanCategories = []ScanCategory{
	ScanStoppedInstances,
	ScanUnusedVolumes,
	ScanUnusedEIPs,
	ScanUntaggedEC2,
	ScanUntaggedRDS,
	ScanUntaggedLambda,
	ScanIdleLoadBalancers,
	ScanLogGroupsNoRetention,
}

// RegionFindings agrupa identificadores de recursos por região.
type RegionFindings map[string][]string

// Count returns the number of resources across all regions.
func (f RegionFindings) Count() int {
	n := 0
	for _, ids := range f {
		n += len(ids)
	}
	return n
}

// Regions returns the regions with findings, sorted.
func (f RegionFindings) Regions() []string {
	regions := make([]string, 0, len(f))
	for r, ids := range f {
		if len(ids) > 0 {
			regions = append(regions, r)
		}
	}
	sort.Strings(regions)
	return regions
}

// ScanReport holds the detector findings for one profile.
type ScanReport struct {
	Profile   string                          `json:"profile"`
	AccountID string                          `json:"account_id"`
	Regions   []string                        `json:"regions"`
	Findings  map[ScanCategory]RegionFindings `json:"findings"`
	Errors    []*RunError                     `json:"errors,omitempty"`
}

// NewScanReport cria um relatório vazio para o perfil.
func NewScanReport(profile, accountID string, regions []string) *ScanReport {
	return &ScanReport{
		Profile:   profile,
		AccountID: accountID,
		Regions:   regions,
		Findings:  make(map[ScanCategory]RegionFindings),
	}
}

// Add registra os ids encontrados por um detector numa região.
func (r *ScanReport) Add(cat ScanCategory, region string, ids []string) {
	if len(ids) == 0 {
		return
	}
	if r.Findings[cat] == nil {
		r.Findings[cat] = make(RegionFindings)
	}
	r.Findings[cat][region] = append(r.Findings[cat][region], ids...)
}

// Count returns the number of findings for a category.
func (r *ScanReport) Count(cat ScanCategory) int {
	return r.Findings[cat].Count()
}
