package entity

import (
	"fmt"
	"strings"
)

// TagPredicate is a key=value constraint; a list of predicates is ANDed.
type TagPredicate struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (p TagPredicate) String() string {
	return p.Key + "=" + p.Value
}

// Matches reports whether tags carry exactly this key and value.
func (p TagPredicate) Matches(tags map[string]string) bool {
	v, ok := tags[p.Key]
	return ok && v == p.Value
}

// ParseTagPredicates converte argumentos no formato Key=Value.
func ParseTagPredicates(raw []string) ([]TagPredicate, error) {
	preds := make([]TagPredicate, 0, len(raw))
	for _, t := range raw {
		parts := strings.SplitN(t, "=", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
			return nil, fmt.Errorf("invalid tag format: %s", t)
		}
		preds = append(preds, TagPredicate{Key: strings.TrimSpace(parts[0]), Value: strings.TrimSpace(parts[1])})
	}
	return preds, nil
}

// ResourceRef identifica um recurso para consulta de tags no inventário.
type ResourceRef struct {
	Profile    string `json:"profile"`
	Region     string `json:"region,omitempty"`
	ResourceID string `json:"resource_id"`
}
