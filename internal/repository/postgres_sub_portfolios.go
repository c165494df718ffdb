package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/domain"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresSubPortfoliosRepository 子组合 Repository（PostgreSQL）
type PostgresSubPortfoliosRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresSubPortfoliosRepository(db *sql.DB, logger *zap.Logger) *PostgresSubPortfoliosRepository {
	return &PostgresSubPortfoliosRepository{db: db, logger: logger}
}

var _ SubPortfoliosRepository = (*PostgresSubPortfoliosRepository)(nil)

var subPortfolioColumns = columnMap{
	"id":            "sp.id",
	"name":          "sp.name",
	"description":   "sp.description",
	"created_at":    "sp.created_at",
	"updated_at":    "sp.updated_at",
	"propertyCount": "COALESCE(pc.cnt, 0)",
}

// 物业数用分组子查询一次算出，避免逐行 count
const subPortfolioFrom = `
	FROM sub_portfolios sp
	JOIN portfolios pf ON pf.id = sp.portfolio_id
	LEFT JOIN (
		SELECT sub_portfolio_id, COUNT(*) AS cnt
		FROM properties
		WHERE sub_portfolio_id IS NOT NULL
		GROUP BY sub_portfolio_id
	) pc ON pc.sub_portfolio_id = sp.id`

const subPortfolioSelect = `
	SELECT
		sp.id, sp.name, sp.description, sp.portfolio_id, sp.created_at, sp.updated_at,
		pf.id, pf.name,
		COALESCE(pc.cnt, 0)` + subPortfolioFrom

func (r *PostgresSubPortfoliosRepository) ListSubPortfolios(ctx context.Context, opts ListOptions) ([]domain.SubPortfolioSummary, int, error) {
	w := &whereBuilder{}
	if opts.Restrict {
		w.restrictIDs("sp.id", opts.IDs)
	}
	if id := opts.Filter.PortfolioID; id != "" {
		w.add(fmt.Sprintf("sp.portfolio_id = %s", w.arg(id)))
	}
	if id := opts.Filter.SubPortfolioID; id != "" {
		w.add(fmt.Sprintf("sp.id = %s", w.arg(id)))
	}
	w.applyFilter(opts.Filter, subPortfolioColumns)

	where := w.clause()
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*)`+subPortfolioFrom+where, w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count sub portfolios: %w", err)
	}
	if total == 0 {
		return []domain.SubPortfolioSummary{}, 0, nil
	}

	q := subPortfolioSelect + where +
		orderBy(opts.Filter.Sort, subPortfolioColumns, "sp.created_at", "sp.id") +
		w.pagination(opts.Filter)

	rows, err := r.db.QueryContext(ctx, q, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query sub portfolios: %w", err)
	}
	defer rows.Close()

	items := []domain.SubPortfolioSummary{}
	for rows.Next() {
		var (
			s           domain.SubPortfolioSummary
			description sql.NullString
			ref         domain.PortfolioRef
		)
		if err := rows.Scan(
			&s.ID, &s.Name, &description, &s.PortfolioID, &s.CreatedAt, &s.UpdatedAt,
			&ref.ID, &ref.Name,
			&s.PropertyCount,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan sub portfolio: %w", err)
		}
		s.Description = nullStringPtr(description)
		s.Portfolio = &ref
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate sub portfolios: %w", err)
	}
	return items, total, nil
}

func (r *PostgresSubPortfoliosRepository) GetSubPortfolio(ctx context.Context, subPortfolioID string) (*domain.SubPortfolio, error) {
	var (
		s           domain.SubPortfolio
		description sql.NullString
		ref         domain.PortfolioRef
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT sp.id, sp.name, sp.description, sp.portfolio_id, sp.created_at, sp.updated_at,
		       pf.id, pf.name
		FROM sub_portfolios sp
		JOIN portfolios pf ON pf.id = sp.portfolio_id
		WHERE sp.id = $1`,
		subPortfolioID,
	).Scan(&s.ID, &s.Name, &description, &s.PortfolioID, &s.CreatedAt, &s.UpdatedAt, &ref.ID, &ref.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("sub portfolio %s: %w", subPortfolioID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query sub portfolio: %w", err)
	}
	s.Description = nullStringPtr(description)
	s.Portfolio = &ref
	return &s, nil
}

func (r *PostgresSubPortfoliosRepository) ListSubPortfolioIDsByPortfolios(ctx context.Context, portfolioIDs []string) ([]string, error) {
	if len(portfolioIDs) == 0 {
		return []string{}, nil
	}
	return queryIDs(ctx, r.db, `SELECT id FROM sub_portfolios WHERE portfolio_id = ANY($1)`, pq.Array(portfolioIDs))
}
