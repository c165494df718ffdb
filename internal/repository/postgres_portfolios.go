package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/domain"

	"go.uber.org/zap"
)

// PostgresPortfoliosRepository 组合 Repository（PostgreSQL）
type PostgresPortfoliosRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresPortfoliosRepository(db *sql.DB, logger *zap.Logger) *PostgresPortfoliosRepository {
	return &PostgresPortfoliosRepository{db: db, logger: logger}
}

var _ PortfoliosRepository = (*PostgresPortfoliosRepository)(nil)

var portfolioColumns = columnMap{
	"id":         "pf.id",
	"name":       "pf.name",
	"created_by": "pf.created_by",
	"updated_by": "pf.updated_by",
	"created_at": "pf.created_at",
	"updated_at": "pf.updated_at",
}

// propertyCount 含直属物业与子组合下的物业
const portfolioSelect = `
	SELECT
		pf.id, pf.name, pf.created_by, pf.updated_by, pf.created_at, pf.updated_at,
		COALESCE(spc.cnt, 0),
		COALESCE(pc.cnt, 0)
	FROM portfolios pf
	LEFT JOIN (
		SELECT portfolio_id, COUNT(*) AS cnt
		FROM sub_portfolios
		GROUP BY portfolio_id
	) spc ON spc.portfolio_id = pf.id
	LEFT JOIN (
		SELECT COALESCE(p.portfolio_id, sp.portfolio_id) AS portfolio_id, COUNT(*) AS cnt
		FROM properties p
		LEFT JOIN sub_portfolios sp ON sp.id = p.sub_portfolio_id
		GROUP BY COALESCE(p.portfolio_id, sp.portfolio_id)
	) pc ON pc.portfolio_id = pf.id`

func (r *PostgresPortfoliosRepository) ListPortfolios(ctx context.Context, opts ListOptions) ([]domain.PortfolioSummary, int, error) {
	w := &whereBuilder{}
	if opts.Restrict {
		w.restrictIDs("pf.id", opts.IDs)
	}
	if id := opts.Filter.PortfolioID; id != "" {
		w.add(fmt.Sprintf("pf.id = %s", w.arg(id)))
	}
	w.applyFilter(opts.Filter, portfolioColumns)

	where := w.clause()
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM portfolios pf`+where, w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count portfolios: %w", err)
	}
	if total == 0 {
		return []domain.PortfolioSummary{}, 0, nil
	}

	q := portfolioSelect + where +
		orderBy(opts.Filter.Sort, portfolioColumns, "pf.created_at", "pf.id") +
		w.pagination(opts.Filter)

	rows, err := r.db.QueryContext(ctx, q, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query portfolios: %w", err)
	}
	defer rows.Close()

	items := []domain.PortfolioSummary{}
	for rows.Next() {
		var (
			p                    domain.PortfolioSummary
			createdBy, updatedBy sql.NullString
		)
		if err := rows.Scan(
			&p.ID, &p.Name, &createdBy, &updatedBy, &p.CreatedAt, &p.UpdatedAt,
			&p.SubPortfolioCount, &p.PropertyCount,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		p.CreatedBy = nullStringPtr(createdBy)
		p.UpdatedBy = nullStringPtr(updatedBy)
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate portfolios: %w", err)
	}
	return items, total, nil
}

func (r *PostgresPortfoliosRepository) GetPortfolio(ctx context.Context, portfolioID string) (*domain.Portfolio, error) {
	var (
		p                    domain.Portfolio
		createdBy, updatedBy sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, created_by, updated_by, created_at, updated_at
		FROM portfolios
		WHERE id = $1`,
		portfolioID,
	).Scan(&p.ID, &p.Name, &createdBy, &updatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("portfolio %s: %w", portfolioID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query portfolio: %w", err)
	}
	p.CreatedBy = nullStringPtr(createdBy)
	p.UpdatedBy = nullStringPtr(updatedBy)
	return &p, nil
}
