package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/domain"
	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/query"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PostgresGrantsRepository 用户授权 Repository（PostgreSQL）
// 表：user_feature_access_permissions
type PostgresGrantsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresGrantsRepository(db *sql.DB, logger *zap.Logger) *PostgresGrantsRepository {
	return &PostgresGrantsRepository{db: db, logger: logger}
}

var _ GrantsRepository = (*PostgresGrantsRepository)(nil)

var grantColumns = columnMap{
	"id":               "id",
	"user_id":          "user_id",
	"portfolio_id":     "portfolio_id",
	"sub_portfolio_id": "sub_portfolio_id",
	"property_id":      "property_id",
	"created_at":       "created_at",
	"updated_at":       "updated_at",
}

const grantReturning = `id, user_id, portfolio_id, sub_portfolio_id, property_id, created_at, updated_at`

// UpsertGrant 单条语句完成 upsert：并发写同一范围只会产生一行
func (r *PostgresGrantsRepository) UpsertGrant(ctx context.Context, userID string, scope domain.GrantScope) (*domain.Grant, error) {
	scope = scope.Normalize()
	q := `
		INSERT INTO user_feature_access_permissions
			(id, user_id, portfolio_id, sub_portfolio_id, property_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT ON CONSTRAINT uq_user_feature_access_scope
		DO UPDATE SET updated_at = NOW()
		RETURNING ` + grantReturning

	g, err := scanGrant(r.db.QueryRowContext(ctx, q,
		uuid.NewString(),
		userID,
		strArg(scope.PortfolioID),
		strArg(scope.SubPortfolioID),
		strArg(scope.PropertyID),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert grant: %w", err)
	}
	return g, nil
}

func (r *PostgresGrantsRepository) ListGrants(ctx context.Context, filter query.FilterSpec) ([]domain.Grant, int, error) {
	w := &whereBuilder{}
	if id := filter.PortfolioID; id != "" {
		w.add(fmt.Sprintf("portfolio_id = %s", w.arg(id)))
	}
	if id := filter.SubPortfolioID; id != "" {
		w.add(fmt.Sprintf("sub_portfolio_id = %s", w.arg(id)))
	}
	w.applyFilter(filter, grantColumns)

	where := w.clause()
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_feature_access_permissions`+where, w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count grants: %w", err)
	}
	if total == 0 {
		return []domain.Grant{}, 0, nil
	}

	q := `SELECT ` + grantReturning + ` FROM user_feature_access_permissions` + where +
		orderBy(filter.Sort, grantColumns, "created_at", "id") +
		w.pagination(filter)

	items, err := r.queryGrants(ctx, q, w.args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *PostgresGrantsRepository) GetGrant(ctx context.Context, grantID string) (*domain.Grant, error) {
	g, err := scanGrant(r.db.QueryRowContext(ctx,
		`SELECT `+grantReturning+` FROM user_feature_access_permissions WHERE id = $1`,
		grantID,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("grant %s: %w", grantID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query grant: %w", err)
	}
	return g, nil
}

func (r *PostgresGrantsRepository) DeleteGrant(ctx context.Context, grantID string) (*domain.Grant, error) {
	g, err := scanGrant(r.db.QueryRowContext(ctx,
		`DELETE FROM user_feature_access_permissions WHERE id = $1 RETURNING `+grantReturning,
		grantID,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("grant %s: %w", grantID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to delete grant: %w", err)
	}
	return g, nil
}

func (r *PostgresGrantsRepository) FindGrantByUserAndScope(ctx context.Context, userID string, scope domain.GrantScope) (*domain.Grant, error) {
	scope = scope.Normalize()
	g, err := scanGrant(r.db.QueryRowContext(ctx, `
		SELECT `+grantReturning+`
		FROM user_feature_access_permissions
		WHERE user_id = $1
		  AND portfolio_id IS NOT DISTINCT FROM $2::text
		  AND sub_portfolio_id IS NOT DISTINCT FROM $3::text
		  AND property_id IS NOT DISTINCT FROM $4::text`,
		userID,
		strArg(scope.PortfolioID),
		strArg(scope.SubPortfolioID),
		strArg(scope.PropertyID),
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query grant by scope: %w", err)
	}
	return g, nil
}

func (r *PostgresGrantsRepository) ListGrantsByUser(ctx context.Context, userID string) ([]domain.Grant, error) {
	return r.queryGrants(ctx, `
		SELECT `+grantReturning+`
		FROM user_feature_access_permissions
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC`,
		userID,
	)
}

// FindFirstMatchingGrant 候选范围之间为 OR；候选内未设置的字段不参与匹配
func (r *PostgresGrantsRepository) FindFirstMatchingGrant(ctx context.Context, userID string, candidates []domain.GrantScope) (*domain.Grant, error) {
	w := &whereBuilder{}
	w.add(fmt.Sprintf("user_id = %s", w.arg(userID)))

	var ors []string
	for _, c := range candidates {
		c = c.Normalize()
		var parts []string
		if c.PortfolioID != nil {
			parts = append(parts, fmt.Sprintf("portfolio_id = %s", w.arg(*c.PortfolioID)))
		}
		if c.SubPortfolioID != nil {
			parts = append(parts, fmt.Sprintf("sub_portfolio_id = %s", w.arg(*c.SubPortfolioID)))
		}
		if c.PropertyID != nil {
			parts = append(parts, fmt.Sprintf("property_id = %s", w.arg(*c.PropertyID)))
		}
		if len(parts) > 0 {
			ors = append(ors, "("+strings.Join(parts, " AND ")+")")
		}
	}
	if len(ors) == 0 {
		return nil, nil
	}
	w.add("(" + strings.Join(ors, " OR ") + ")")

	g, err := scanGrant(r.db.QueryRowContext(ctx,
		`SELECT `+grantReturning+` FROM user_feature_access_permissions`+w.clause()+` ORDER BY created_at ASC, id ASC LIMIT 1`,
		w.args...,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query matching grant: %w", err)
	}
	return g, nil
}

func (r *PostgresGrantsRepository) queryGrants(ctx context.Context, q string, args ...any) ([]domain.Grant, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query grants: %w", err)
	}
	defer rows.Close()

	out := []domain.Grant{}
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		out = append(out, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate grants: %w", err)
	}
	return out, nil
}

func scanGrant(s rowScanner) (*domain.Grant, error) {
	var (
		g                                       domain.Grant
		portfolioID, subPortfolioID, propertyID sql.NullString
	)
	if err := s.Scan(&g.ID, &g.UserID, &portfolioID, &subPortfolioID, &propertyID, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	g.PortfolioID = nullStringPtr(portfolioID)
	g.SubPortfolioID = nullStringPtr(subPortfolioID)
	g.PropertyID = nullStringPtr(propertyID)
	return &g, nil
}
