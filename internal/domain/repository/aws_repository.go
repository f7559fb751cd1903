package repository

import (
	"context"
	"time"

	"github.com/diillson/aws-costlens/internal/domain/entity"
)

// CredentialProvider resolves profiles into account identities.
type CredentialProvider interface {
	ListProfiles() []string
	ResolveIdentity(ctx context.Context, profile string) (string, error)
	AccessibleRegions(ctx context.Context, profile string) ([]string, error)
}

// CostQuery descreve uma consulta de custo por serviço.
type CostQuery struct {
	Profile  string
	Region   string // entity.AllRegions => sem filtro de região
	Interval entity.TimeRange
	// WithResources pede granularidade por recurso, necessária para o filtro de tags.
	WithResources bool
	// Tags permite ao serviço filtrar no servidor quando não há dado por recurso.
	Tags []entity.TagPredicate
	// Since é o início mais antigo da execução. A escolha entre dado por recurso
	// e filtro no servidor usa Since, para que os dois períodos sigam o mesmo caminho.
	// Zero => Interval.Start.
	Since time.Time
}

// WindowStart returns the date that decides the resource-level path.
func (q CostQuery) WindowStart() time.Time {
	if q.Since.IsZero() {
		return q.Interval.Start
	}
	return q.Since
}

// BillingService is the billing query collaborator.
type BillingService interface {
	QueryCostByService(ctx context.Context, q CostQuery) ([]entity.BillingLine, error)
	MonthlyCosts(ctx context.Context, profile string, months int, tags []entity.TagPredicate) ([]entity.MonthlyCost, error)
	Budgets(ctx context.Context, profile, accountID string) ([]entity.BudgetInfo, error)
}

// InventoryService looks up resource tags. found=false means no tag data exists.
type InventoryService interface {
	LookupTags(ctx context.Context, ref entity.ResourceRef) (tags map[string]string, found bool, err error)
}

// ScanService runs the resource-scan detectors for one profile.
type ScanService interface {
	ScanResources(ctx context.Context, profile string, regions []string) (map[entity.ScanCategory]entity.RegionFindings, []*entity.RunError)
}

// AWSRepository agrega todas as operações AWS usadas pela aplicação.
type AWSRepository interface {
	CredentialProvider
	BillingService
	InventoryService
	ScanService
}
