package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository loads contractors together with their price lists.
type Repository interface {
	GetContractor(ctx context.Context, id int64) (Contractor, error)
}

var _ Repository = (*pgRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed pricing repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) GetContractor(ctx context.Context, id int64) (Contractor, error) {
	var (
		contractor Contractor
		abbr       pgtype.Text
	)
	err := r.pool.QueryRow(ctx, `SELECT id, name, abbreviation FROM contractors WHERE id = $1`, id).
		Scan(&contractor.ID, &contractor.Name, &abbr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contractor{}, ErrContractorNotFound
		}
		return Contractor{}, fmt.Errorf("load contractor: %w", err)
	}
	contractor.Abbreviation = abbr.String

	rows, err := r.pool.Query(ctx, `SELECT s.id, s.name, pr.material, pr.from_location, pr.to_location, pr.price, pr.unit
FROM sites s
LEFT JOIN price_rules pr ON pr.site_id = s.id
WHERE s.contractor_id = $1
ORDER BY s.id, pr.id`, id)
	if err != nil {
		return Contractor{}, fmt.Errorf("load price rules: %w", err)
	}
	defer rows.Close()

	index := make(map[int64]int)
	for rows.Next() {
		var (
			siteID                   int64
			siteName                 string
			material, from, to, unit pgtype.Text
			price                    pgtype.Numeric
		)
		if err := rows.Scan(&siteID, &siteName, &material, &from, &to, &price, &unit); err != nil {
			return Contractor{}, err
		}
		pos, ok := index[siteID]
		if !ok {
			contractor.Sites = append(contractor.Sites, Site{ID: siteID, Name: siteName})
			pos = len(contractor.Sites) - 1
			index[siteID] = pos
		}
		if !material.Valid {
			continue
		}
		amount, _ := price.Float64Value()
		contractor.Sites[pos].Rules = append(contractor.Sites[pos].Rules, PriceRule{
			Material: material.String,
			From:     from.String,
			To:       to.String,
			Price:    amount.Float64,
			Unit:     unit.String,
		})
	}
	return contractor, rows.Err()
}
