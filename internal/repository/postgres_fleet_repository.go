package repository

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"

	sq "github.com/Masterminds/squirrel"

	"github.com/fleetdesk/fleet-service/internal/models"
)

// defaultPageSize applies when a caller passes a page size below one.
const defaultPageSize = 20

// psq is the PostgreSQL statement builder with dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// DBGetter returns the current database handle. It allows the repository to
// follow reconnections of the underlying pool.
type DBGetter func() (*sql.DB, error)

// PostgresFleetRepository implements FleetRepository with one table per
// resource type, each row holding the item's fields as a JSONB document.
type PostgresFleetRepository struct {
	getDB DBGetter
}

// NewPostgresFleetRepository creates a new PostgreSQL fleet repository.
func NewPostgresFleetRepository(getDB DBGetter) *PostgresFleetRepository {
	return &PostgresFleetRepository{getDB: getDB}
}

// table maps a validated resource type to its table name.
func table(rt models.ResourceType) (string, error) {
	if _, err := models.ParseResourceType(string(rt)); err != nil {
		return "", err
	}
	return string(rt), nil
}

// encodeFields serializes fields without the id, which lives in its own column.
func encodeFields(fields map[string]any) ([]byte, error) {
	doc := make(map[string]any, len(fields))
	for k, v := range fields {
		if k != "id" {
			doc[k] = v
		}
	}
	return json.Marshal(doc)
}

func decodeRow(id int64, data []byte) (models.Item, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	fields := map[string]any{}
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("decoding item %d: %w", id, err)
	}
	return models.WithID(id, fields), nil
}

func (r *PostgresFleetRepository) query(ctx context.Context, qb sq.SelectBuilder) ([]models.Item, error) {
	db, err := r.getDB()
	if err != nil {
		return nil, err
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building fleet query: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying fleet items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := []models.Item{}
	for rows.Next() {
		var id int64
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scanning fleet item: %w", err)
		}
		item, err := decodeRow(id, data)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fleet items: %w", err)
	}
	return items, nil
}

func (r *PostgresFleetRepository) selectItems(tenantID string, rt models.ResourceType) (sq.SelectBuilder, error) {
	name, err := table(rt)
	if err != nil {
		return sq.SelectBuilder{}, err
	}
	return psq.Select("id", "data").From(name).Where(sq.Eq{"tenant_id": tenantID}).OrderBy("id"), nil
}

// List returns one page of a tenant's collection.
func (r *PostgresFleetRepository) List(
	ctx context.Context,
	tenantID string,
	rt models.ResourceType,
	page, pageSize int,
) ([]models.Item, error) {
	qb, err := r.selectItems(tenantID, rt)
	if err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	// OFFSET is a bigint; a page that starts beyond it cannot hold rows.
	if uint64(page-1) > math.MaxInt64/uint64(pageSize) {
		return []models.Item{}, nil
	}
	qb = qb.Limit(uint64(pageSize)).Offset(uint64(page-1) * uint64(pageSize))

	return r.query(ctx, qb)
}

// GetAll returns a tenant's whole collection.
func (r *PostgresFleetRepository) GetAll(ctx context.Context, tenantID string, rt models.ResourceType) ([]models.Item, error) {
	qb, err := r.selectItems(tenantID, rt)
	if err != nil {
		return nil, err
	}
	return r.query(ctx, qb)
}

// GetItem returns one item of a tenant's collection.
func (r *PostgresFleetRepository) GetItem(
	ctx context.Context,
	tenantID string,
	rt models.ResourceType,
	id int64,
) (models.Item, bool, error) {
	qb, err := r.selectItems(tenantID, rt)
	if err != nil {
		return nil, false, err
	}

	items, err := r.query(ctx, qb.Where(sq.Eq{"id": id}))
	if err != nil || len(items) == 0 {
		return nil, false, err
	}
	return items[0], true, nil
}

// CreateItem inserts a new item and returns it with the id assigned by the database.
func (r *PostgresFleetRepository) CreateItem(
	ctx context.Context,
	tenantID string,
	rt models.ResourceType,
	fields map[string]any,
) (models.Item, error) {
	name, err := table(rt)
	if err != nil {
		return nil, err
	}
	data, err := encodeFields(fields)
	if err != nil {
		return nil, fmt.Errorf("encoding fleet item: %w", err)
	}
	db, err := r.getDB()
	if err != nil {
		return nil, err
	}

	query, args, err := psq.Insert(name).
		Columns("tenant_id", "data").
		Values(tenantID, data).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building insert: %w", err)
	}

	var id int64
	if err := db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return nil, fmt.Errorf("inserting %s item: %w", name, err)
	}
	return models.WithID(id, fields), nil
}

// UpdateItem replaces an item's document.
func (r *PostgresFleetRepository) UpdateItem(
	ctx context.Context,
	tenantID string,
	rt models.ResourceType,
	id int64,
	fields map[string]any,
) (models.Item, bool, error) {
	name, err := table(rt)
	if err != nil {
		return nil, false, err
	}
	data, err := encodeFields(fields)
	if err != nil {
		return nil, false, fmt.Errorf("encoding fleet item: %w", err)
	}

	affected, err := r.exec(ctx, psq.Update(name).
		Set("data", data).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"tenant_id": tenantID, "id": id}))
	if err != nil || affected == 0 {
		return nil, false, err
	}
	return models.WithID(id, fields), true, nil
}

// DeleteItem removes an item.
func (r *PostgresFleetRepository) DeleteItem(
	ctx context.Context,
	tenantID string,
	rt models.ResourceType,
	id int64,
) (bool, error) {
	name, err := table(rt)
	if err != nil {
		return false, err
	}

	affected, err := r.exec(ctx, psq.Delete(name).Where(sq.Eq{"tenant_id": tenantID, "id": id}))
	return affected > 0, err
}

func (r *PostgresFleetRepository) exec(ctx context.Context, qb sq.Sqlizer) (int64, error) {
	db, err := r.getDB()
	if err != nil {
		return 0, err
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return 0, fmt.Errorf("building statement: %w", err)
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("executing fleet statement: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading affected rows: %w", err)
	}
	return affected, nil
}

var _ FleetRepository = (*PostgresFleetRepository)(nil)
