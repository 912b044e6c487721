package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"catalogapi/internal/model"
	"catalogapi/internal/repository"
)

const productsTable = "products"

var productColumns = []string{
	"id", "name", "description", "type", "quantity", "price", "image", "created_at", "updated_at",
}

// likeEscaper makes user input match literally inside an ILIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ProductPostgres is a PostgreSQL implementation of repository.ProductRepository.
// Queries are built with squirrel and executed through database/sql.
type ProductPostgres struct {
	db *sql.DB
	qb sq.StatementBuilderType
}

// NewProductPostgres creates a new ProductPostgres repository.
func NewProductPostgres(db *sql.DB) *ProductPostgres {
	return &ProductPostgres{
		db: db,
		qb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

var _ repository.ProductRepository = (*ProductPostgres)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*model.Product, error) {
	var p model.Product
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Type,
		&p.Quantity,
		&p.Price,
		&p.Image,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a product row and returns it as stored.
func (r *ProductPostgres) Create(ctx context.Context, p *model.Product) (*model.Product, error) {
	q, args, err := r.qb.Insert(productsTable).
		Columns(productColumns...).
		Values(p.ID, p.Name, p.Description, p.Type, p.Quantity, p.Price, p.Image, p.CreatedAt, p.UpdatedAt).
		Suffix("RETURNING " + strings.Join(productColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert: %w", err)
	}
	return scanProduct(r.db.QueryRowContext(ctx, q, args...))
}

// FindByID fetches a single product. A missing row yields sql.ErrNoRows.
func (r *ProductPostgres) FindByID(ctx context.Context, id string) (*model.Product, error) {
	q, args, err := r.qb.Select(productColumns...).
		From(productsTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	return scanProduct(r.db.QueryRowContext(ctx, q, args...))
}

// List returns products ordered newest first using LIMIT/OFFSET pagination and a total count.
func (r *ProductPostgres) List(ctx context.Context, f repository.ProductFilter) (*repository.PageResult[model.Product], error) {
	filter := func(b sq.SelectBuilder) sq.SelectBuilder {
		if f.Search == "" {
			return b
		}
		return b.Where(sq.ILike{"name": "%" + likeEscaper.Replace(f.Search) + "%"})
	}

	qCount, countArgs, err := filter(r.qb.Select("COUNT(*)").From(productsTable)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build count: %w", err)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, qCount, countArgs...).Scan(&total); err != nil {
		return nil, err
	}

	qList, listArgs, err := filter(r.qb.Select(productColumns...).From(productsTable)).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(f.Limit)).
		Offset(uint64(f.Offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, qList, listArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Product, 0, f.Limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Product]{
		Items: items,
		Total: total,
	}, nil
}

// Update overwrites every mutable column. It returns sql.ErrNoRows when the row is gone.
func (r *ProductPostgres) Update(ctx context.Context, p *model.Product) error {
	q, args, err := r.qb.Update(productsTable).
		SetMap(map[string]any{
			"name":        p.Name,
			"description": p.Description,
			"type":        p.Type,
			"quantity":    p.Quantity,
			"price":       p.Price,
			"image":       p.Image,
			"updated_at":  p.UpdatedAt,
		}).
		Where(sq.Eq{"id": p.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a product by ID. It does not return an error if the row does not exist.
func (r *ProductPostgres) Delete(ctx context.Context, id string) error {
	q, args, err := r.qb.Delete(productsTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	return err
}
