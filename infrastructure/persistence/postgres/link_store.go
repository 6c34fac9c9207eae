package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ariellewolter/research-notebook-ver4-sub004/application/ports"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/entities"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/valueobjects"
	apperrors "github.com/ariellewolter/research-notebook-ver4-sub004/pkg/errors"
	"github.com/ariellewolter/research-notebook-ver4-sub004/pkg/utils"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const linkColumns = `id::text AS id, source_type, source_id, target_type, target_id, metadata, created_at, updated_at`

const newestFirst = ` ORDER BY created_at DESC, id DESC`

// DB is the subset of *pgxpool.Pool the store needs
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// linkRow mirrors one entity_links row
type linkRow struct {
	ID         string    `db:"id"`
	SourceType string    `db:"source_type"`
	SourceID   string    `db:"source_id"`
	TargetType string    `db:"target_type"`
	TargetID   string    `db:"target_id"`
	Metadata   *string   `db:"metadata"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r linkRow) toEntity() *entities.Link {
	return &entities.Link{
		ID:         r.ID,
		SourceType: valueobjects.EntityType(r.SourceType),
		SourceID:   r.SourceID,
		TargetType: valueobjects.EntityType(r.TargetType),
		TargetID:   r.TargetID,
		Metadata:   r.Metadata,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

// LinkStore implements ports.LinkStore on PostgreSQL
type LinkStore struct {
	db  DB
	now func() time.Time
}

var _ ports.LinkStore = (*LinkStore)(nil)

// NewLinkStore creates a store on db, normally a *pgxpool.Pool
func NewLinkStore(db DB) *LinkStore {
	return &LinkStore{db: db, now: utils.NowUTC}
}

// WithClock replaces the timestamp source
func (s *LinkStore) WithClock(now func() time.Time) *LinkStore {
	s.now = now
	return s
}

func insertLink(ctx context.Context, q interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}, link *entities.Link) error {
	_, err := q.Exec(ctx,
		`INSERT INTO entity_links (id, source_type, source_id, target_type, target_id, metadata, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		link.ID, string(link.SourceType), link.SourceID, string(link.TargetType), link.TargetID,
		link.Metadata, link.CreatedAt, link.UpdatedAt,
	)
	return err
}

// Create inserts one link
func (s *LinkStore) Create(ctx context.Context, input entities.LinkInput) (*entities.Link, error) {
	link, err := entities.NewLink(input, s.now())
	if err != nil {
		return nil, err
	}
	if err := insertLink(ctx, s.db, link); err != nil {
		return nil, apperrors.NewStorageError("create", err)
	}
	return link, nil
}

// CreatePair inserts both links in one transaction
func (s *LinkStore) CreatePair(ctx context.Context, forward, reverse entities.LinkInput) (*entities.Link, *entities.Link, error) {
	now := s.now()
	fwd, err := entities.NewLink(forward, now)
	if err != nil {
		return nil, nil, err
	}
	rev, err := entities.NewLink(reverse, now)
	if err != nil {
		return nil, nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, nil, apperrors.NewStorageError("create_pair", err)
	}
	defer tx.Rollback(ctx)

	if err := insertLink(ctx, tx, fwd); err != nil {
		return nil, nil, apperrors.NewStorageError("create_pair", err)
	}
	if err := insertLink(ctx, tx, rev); err != nil {
		return nil, nil, apperrors.NewStorageError("create_pair", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, apperrors.NewStorageError("create_pair", err)
	}
	return fwd, rev, nil
}

// FindByID returns nil, nil for unknown and malformed ids
func (s *LinkStore) FindByID(ctx context.Context, id string) (*entities.Link, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	links, err := s.query(ctx, "find_by_id", `SELECT `+linkColumns+` FROM entity_links WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, nil
	}
	return links[0], nil
}

// Delete removes a link by id
func (s *LinkStore) Delete(ctx context.Context, id string) error {
	notFound := apperrors.NewNotFoundError("link").WithDetails(map[string]interface{}{"id": id})
	if _, err := uuid.Parse(id); err != nil {
		return notFound
	}

	tag, err := s.db.Exec(ctx, `DELETE FROM entity_links WHERE id = $1`, id)
	if err != nil {
		return apperrors.NewStorageError("delete", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound
	}
	return nil
}

// FindMany returns one window of filtered links
func (s *LinkStore) FindMany(ctx context.Context, filter ports.LinkFilter, skip, take int) ([]*entities.Link, error) {
	where, args := buildWhere(filter)
	sql := `SELECT ` + linkColumns + ` FROM entity_links` + where + newestFirst +
		fmt.Sprintf(` OFFSET $%d LIMIT $%d`, len(args)+1, len(args)+2)
	args = append(args, max(skip, 0), max(take, 0))
	return s.query(ctx, "find_many", sql, args...)
}

// Count returns the exact number of filtered links
func (s *LinkStore) Count(ctx context.Context, filter ports.LinkFilter) (int, error) {
	where, args := buildWhere(filter)

	var n int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM entity_links`+where, args...).Scan(&n); err != nil {
		return 0, apperrors.NewStorageError("count", err)
	}
	return n, nil
}

// GetOutgoing returns links leaving ref
func (s *LinkStore) GetOutgoing(ctx context.Context, ref valueobjects.EntityRef) ([]*entities.Link, error) {
	return s.query(ctx, "get_outgoing",
		`SELECT `+linkColumns+` FROM entity_links WHERE source_type = $1 AND source_id = $2`+newestFirst,
		string(ref.Type), ref.ID)
}

// GetBacklinks returns links pointing at ref
func (s *LinkStore) GetBacklinks(ctx context.Context, ref valueobjects.EntityRef) ([]*entities.Link, error) {
	return s.query(ctx, "get_backlinks",
		`SELECT `+linkColumns+` FROM entity_links WHERE target_type = $1 AND target_id = $2`+newestFirst,
		string(ref.Type), ref.ID)
}

// Search matches query as a case-sensitive substring of metadata
func (s *LinkStore) Search(ctx context.Context, query string, limit int) ([]*entities.Link, error) {
	return s.query(ctx, "search",
		`SELECT `+linkColumns+` FROM entity_links WHERE metadata IS NOT NULL AND strpos(metadata, $1) > 0`+newestFirst+` LIMIT $2`,
		query, max(limit, 0))
}

// DeleteByEntity removes every link touching ref
func (s *LinkStore) DeleteByEntity(ctx context.Context, ref valueobjects.EntityRef) (int, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM entity_links
		 WHERE (source_type = $1 AND source_id = $2) OR (target_type = $1 AND target_id = $2)`,
		string(ref.Type), ref.ID)
	if err != nil {
		return 0, apperrors.NewStorageError("delete_by_entity", err)
	}
	return int(tag.RowsAffected()), nil
}

// Ping checks the database connection
func (s *LinkStore) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return apperrors.NewStorageError("ping", err)
	}
	return nil
}

func (s *LinkStore) query(ctx context.Context, operation, sql string, args ...any) ([]*entities.Link, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperrors.NewStorageError(operation, err)
	}

	collected, err := pgx.CollectRows(rows, pgx.RowToStructByName[linkRow])
	if err != nil {
		return nil, apperrors.NewStorageError(operation, err)
	}

	links := make([]*entities.Link, len(collected))
	for i, r := range collected {
		links[i] = r.toEntity()
	}
	return links, nil
}

// buildWhere renders the present filter fields as a WHERE clause with positional args
func buildWhere(filter ports.LinkFilter) (string, []any) {
	var conds []string
	var args []any

	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("source_type", string(filter.SourceType))
	add("source_id", filter.SourceID)
	add("target_type", string(filter.TargetType))
	add("target_id", filter.TargetID)

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
