package summaries

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ariellewolter/research-notebook-ver4-sub004/application/ports"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/entities"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/valueobjects"
	"github.com/ariellewolter/research-notebook-ver4-sub004/infrastructure/config"
	apperrors "github.com/ariellewolter/research-notebook-ver4-sub004/pkg/errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Querier is the part of a pgx pool the resolver needs
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type summaryRow struct {
	ID         string `db:"id"`
	Title      string `db:"title"`
	Name       string `db:"name"`
	Text       string `db:"text"`
	Page       int    `db:"page"`
	ParentName string `db:"parent_name"`
}

// PostgresResolver reads summaries straight from the entity tables of the
// notebook database, one batched query per entity type
type PostgresResolver struct {
	db      Querier
	queries map[valueobjects.EntityType]string
	logger  *zap.Logger
}

var _ ports.SummaryResolver = (*PostgresResolver)(nil)

// NewPostgresResolver prepares one query per configured table. Unknown
// entity types and malformed mappings are rejected.
func NewPostgresResolver(db Querier, tables map[string]config.SummaryTable, logger *zap.Logger) (*PostgresResolver, error) {
	queries := make(map[valueobjects.EntityType]string, len(tables))
	for typ, table := range tables {
		et := valueobjects.EntityType(typ)
		if !et.IsValid() {
			return nil, fmt.Errorf("summary table configured for unknown entity type %q", typ)
		}
		query, err := buildSummaryQuery(table)
		if err != nil {
			return nil, fmt.Errorf("summary table for %s: %w", typ, err)
		}
		queries[et] = query
	}
	return &PostgresResolver{db: db, queries: queries, logger: logger}, nil
}

// Resolve groups refs by type and runs the per-type queries concurrently
func (r *PostgresResolver) Resolve(ctx context.Context, refs []valueobjects.EntityRef) (map[valueobjects.EntityRef]*entities.EntitySummary, error) {
	byType := make(map[valueobjects.EntityType][]string)
	for _, ref := range refs {
		if _, ok := r.queries[ref.Type]; !ok {
			continue
		}
		byType[ref.Type] = append(byType[ref.Type], ref.ID)
	}

	var mu sync.Mutex
	out := make(map[valueobjects.EntityRef]*entities.EntitySummary, len(refs))

	g, ctx := errgroup.WithContext(ctx)
	for typ, ids := range byType {
		g.Go(func() error {
			summaries, err := r.resolveType(ctx, typ, ids)
			if err != nil {
				return err
			}
			mu.Lock()
			for _, s := range summaries {
				out[s.Ref()] = s
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresResolver) resolveType(ctx context.Context, typ valueobjects.EntityType, ids []string) ([]*entities.EntitySummary, error) {
	rows, err := r.db.Query(ctx, r.queries[typ], ids)
	if err != nil {
		return nil, apperrors.NewExternalError("summaries", err).WithDetails(map[string]interface{}{"entity_type": string(typ)})
	}
	found, err := pgx.CollectRows(rows, pgx.RowToStructByName[summaryRow])
	if err != nil {
		return nil, apperrors.NewExternalError("summaries", err).WithDetails(map[string]interface{}{"entity_type": string(typ)})
	}

	r.logger.Debug("Resolved summaries",
		zap.String("entityType", string(typ)),
		zap.Int("requested", len(ids)),
		zap.Int("found", len(found)))

	out := make([]*entities.EntitySummary, 0, len(found))
	for _, row := range found {
		out = append(out, &entities.EntitySummary{
			Type:       typ,
			ID:         row.ID,
			Title:      row.Title,
			Name:       row.Name,
			Text:       row.Text,
			Page:       row.Page,
			ParentName: row.ParentName,
		})
	}
	return out, nil
}

// buildSummaryQuery renders the SELECT for one table mapping. Unmapped
// columns become empty literals so every query has the same shape.
func buildSummaryQuery(table config.SummaryTable) (string, error) {
	if strings.TrimSpace(table.Table) == "" {
		return "", fmt.Errorf("table name is required")
	}
	idColumn := table.IDColumn
	if idColumn == "" {
		idColumn = "id"
	}

	text := func(column, alias string) string {
		if column == "" {
			return fmt.Sprintf("''::text AS %s", alias)
		}
		return fmt.Sprintf("COALESCE(%s::text, '') AS %s", pgx.Identifier{column}.Sanitize(), alias)
	}
	page := "0 AS page"
	if table.PageColumn != "" {
		page = fmt.Sprintf("COALESCE(%s, 0)::int AS page", pgx.Identifier{table.PageColumn}.Sanitize())
	}

	id := pgx.Identifier{idColumn}.Sanitize()
	columns := []string{
		fmt.Sprintf("%s::text AS id", id),
		text(table.TitleColumn, "title"),
		text(table.NameColumn, "name"),
		text(table.TextColumn, "text"),
		page,
		text(table.ParentColumn, "parent_name"),
	}

	return fmt.Sprintf("SELECT %s FROM %s WHERE %s::text = ANY($1)",
		strings.Join(columns, ", "),
		pgx.Identifier(strings.Split(table.Table, ".")).Sanitize(),
		id), nil
}

// ConfiguredTypes lists the entity types this resolver can answer for
func (r *PostgresResolver) ConfiguredTypes() []valueobjects.EntityType {
	out := make([]valueobjects.EntityType, 0, len(r.queries))
	for t := range r.queries {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
