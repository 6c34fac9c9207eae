// Package summaries resolves entity references to the label data shown on
// graph nodes and link listings.
package summaries

import (
	"context"

	"github.com/ariellewolter/research-notebook-ver4-sub004/application/ports"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/entities"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/valueobjects"
	"github.com/ariellewolter/research-notebook-ver4-sub004/infrastructure/config"
)

// StaticResolver serves summaries from a fixed set, usually loaded from the
// runtime config file
type StaticResolver struct {
	entries map[valueobjects.EntityRef]*entities.EntitySummary
}

var _ ports.SummaryResolver = (*StaticResolver)(nil)

// NewStaticResolver indexes entries by reference. Later duplicates win.
func NewStaticResolver(entries []config.StaticSummary) *StaticResolver {
	r := &StaticResolver{entries: make(map[valueobjects.EntityRef]*entities.EntitySummary, len(entries))}
	for _, e := range entries {
		summary := &entities.EntitySummary{
			Type:       valueobjects.EntityType(e.Type),
			ID:         e.ID,
			Title:      e.Title,
			Name:       e.Name,
			Text:       e.Text,
			Page:       e.Page,
			ParentName: e.ParentName,
		}
		r.entries[summary.Ref()] = summary
	}
	return r
}

// Resolve returns copies of the known summaries among refs
func (r *StaticResolver) Resolve(ctx context.Context, refs []valueobjects.EntityRef) (map[valueobjects.EntityRef]*entities.EntitySummary, error) {
	out := make(map[valueobjects.EntityRef]*entities.EntitySummary, len(refs))
	for _, ref := range refs {
		if s, ok := r.entries[ref]; ok {
			copied := *s
			out[ref] = &copied
		}
	}
	return out, nil
}

// NoopResolver resolves nothing, leaving every node on its fallback label
type NoopResolver struct{}

// Resolve returns an empty map
func (NoopResolver) Resolve(ctx context.Context, refs []valueobjects.EntityRef) (map[valueobjects.EntityRef]*entities.EntitySummary, error) {
	return map[valueobjects.EntityRef]*entities.EntitySummary{}, nil
}
