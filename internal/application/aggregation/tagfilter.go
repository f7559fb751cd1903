package aggregation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/diillson/aws-costlens/internal/domain/entity"
	"github.com/diillson/aws-costlens/internal/domain/repository"
)

// TagFilter keeps only line items whose resource carries every predicate tag.
type TagFilter struct {
	inventory repository.InventoryService
	timeout   time.Duration
	logger    *zap.Logger
}

// NewTagFilter cria o filtro; inventory pode ser nil quando os itens já trazem tags.
func NewTagFilter(inventory repository.InventoryService, timeout time.Duration, logger *zap.Logger) *TagFilter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TagFilter{inventory: inventory, timeout: timeout, logger: logger}
}

type tagLookup struct {
	tags  map[string]string
	found bool
}

// Apply filters items by ANDed predicates. With no predicates the input is
// returned unchanged. Items lacking a resource id or resolvable tag data are
// dropped; lookup failures are reported once per resource.
func (f *TagFilter) Apply(ctx context.Context, items []entity.CostLineItem, predicates []entity.TagPredicate) ([]entity.CostLineItem, []*entity.RunError) {
	if len(predicates) == 0 {
		return items, nil
	}

	var (
		out     []entity.CostLineItem
		errs    []*entity.RunError
		cache   = make(map[entity.ResourceRef]tagLookup)
		dropped int
	)

	for _, item := range items {
		tags := item.Tags
		if tags == nil {
			if item.ResourceID == "" {
				dropped++
				continue
			}
			ref := item.Ref()
			res, ok := cache[ref]
			if !ok {
				var err error
				res, err = f.lookup(ctx, ref)
				cache[ref] = res
				if err != nil {
					period := item.Period
					errs = append(errs, entity.NewRunError(entity.KindPartialFetchFailure, item.Profile, regionLabel(item.Region), &period,
						fmt.Errorf("tag lookup for %s: %w", ref.ResourceID, err)))
				}
			}
			if !res.found {
				dropped++
				continue
			}
			tags = res.tags
		}

		if matchesAll(tags, predicates) {
			item.Tags = tags
			out = append(out, item)
		} else {
			dropped++
		}
	}

	f.logger.Debug("tag filter applied",
		zap.Int("kept", len(out)),
		zap.Int("dropped", dropped),
		zap.Int("lookups", len(cache)))
	return out, errs
}

func (f *TagFilter) lookup(ctx context.Context, ref entity.ResourceRef) (tagLookup, error) {
	if f.inventory == nil {
		return tagLookup{}, nil
	}
	callCtx, cancel := withCallTimeout(ctx, f.timeout)
	defer cancel()

	tags, found, err := f.inventory.LookupTags(callCtx, ref)
	if err != nil {
		return tagLookup{}, err
	}
	return tagLookup{tags: tags, found: found}, nil
}

func matchesAll(tags map[string]string, predicates []entity.TagPredicate) bool {
	for _, p := range predicates {
		if !p.Matches(tags) {
			return false
		}
	}
	return true
}
