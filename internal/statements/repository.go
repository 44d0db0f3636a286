package statements

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists statements. Bodies cross this boundary as raw JSON text.
type Repository interface {
	Create(ctx context.Context, stmt Statement) (int64, error)
	Get(ctx context.Context, id int64) (Statement, error)
	List(ctx context.Context, contractorID *int64) ([]Statement, error)
	ListAll(ctx context.Context) ([]Statement, error)
	SaveDetails(ctx context.Context, id int64, details string) error
	Delete(ctx context.Context, id int64) error
}

var _ Repository = (*pgRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed statement repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const selectStatements = `SELECT id, contractor_id, name, type, statement_date, letterhead, COALESCE(details, ''), created_at, updated_at FROM statements`

func (r *pgRepository) Create(ctx context.Context, stmt Statement) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO statements (contractor_id, name, type, statement_date, letterhead, details)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		stmt.ContractorID, stmt.Name, stmt.Type, stmt.Date, stmt.Letterhead, stmt.RawDetails).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert statement: %w", err)
	}
	return id, nil
}

func (r *pgRepository) Get(ctx context.Context, id int64) (Statement, error) {
	stmt, err := scanStatement(r.pool.QueryRow(ctx, selectStatements+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Statement{}, ErrStatementNotFound
	}
	return stmt, err
}

func (r *pgRepository) List(ctx context.Context, contractorID *int64) ([]Statement, error) {
	if contractorID == nil {
		return r.query(ctx, selectStatements+` ORDER BY statement_date DESC, id DESC`)
	}
	return r.query(ctx, selectStatements+` WHERE contractor_id = $1 ORDER BY statement_date DESC, id DESC`, *contractorID)
}

func (r *pgRepository) ListAll(ctx context.Context) ([]Statement, error) {
	return r.query(ctx, selectStatements+` ORDER BY id`)
}

func (r *pgRepository) SaveDetails(ctx context.Context, id int64, details string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE statements SET details = $2, updated_at = NOW() WHERE id = $1`, id, details)
	if err != nil {
		return fmt.Errorf("save statement details: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStatementNotFound
	}
	return nil
}

func (r *pgRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM statements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete statement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStatementNotFound
	}
	return nil
}

func (r *pgRepository) query(ctx context.Context, sql string, args ...any) ([]Statement, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list statements: %w", err)
	}
	defer rows.Close()
	var out []Statement
	for rows.Next() {
		stmt, err := scanStatement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, stmt)
	}
	return out, rows.Err()
}

func scanStatement(row pgx.Row) (Statement, error) {
	var (
		stmt         Statement
		contractorID pgtype.Int8
		typ, letter  pgtype.Text
		date         pgtype.Date
	)
	if err := row.Scan(&stmt.ID, &contractorID, &stmt.Name, &typ, &date, &letter, &stmt.RawDetails, &stmt.CreatedAt, &stmt.UpdatedAt); err != nil {
		return Statement{}, err
	}
	if contractorID.Valid {
		id := contractorID.Int64
		stmt.ContractorID = &id
	}
	stmt.Type = typ.String
	stmt.Letterhead = letter.String
	stmt.Date = date.Time
	return stmt, nil
}
