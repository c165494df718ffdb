package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/domain"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresPropertiesRepository 物业 Repository（PostgreSQL）
type PostgresPropertiesRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresPropertiesRepository(db *sql.DB, logger *zap.Logger) *PostgresPropertiesRepository {
	return &PostgresPropertiesRepository{db: db, logger: logger}
}

var _ PropertiesRepository = (*PostgresPropertiesRepository)(nil)

var propertyColumns = columnMap{
	"id":             "p.id",
	"name":           "p.name",
	"expedia_id":     "p.expedia_id",
	"expedia_status": "p.expedia_status",
	"booking_id":     "p.booking_id",
	"booking_status": "p.booking_status",
	"agoda_id":       "p.agoda_id",
	"agoda_status":   "p.agoda_status",
	"user_email":     "p.user_email",
	"created_at":     "p.created_at",
	"updated_at":     "p.updated_at",
}

const propertySelect = `
	SELECT
		p.id, p.name, p.portfolio_id, p.sub_portfolio_id,
		p.expedia_id, p.expedia_status, p.booking_id, p.booking_status,
		p.agoda_id, p.agoda_status, p.user_email, p.user_password,
		p.created_at, p.updated_at,
		sp.id, sp.name, sp.portfolio_id,
		pf.id, pf.name
	FROM properties p
	LEFT JOIN sub_portfolios sp ON sp.id = p.sub_portfolio_id
	LEFT JOIN portfolios pf ON pf.id = p.portfolio_id`

const propertyCountFrom = `
	SELECT COUNT(*)
	FROM properties p
	LEFT JOIN sub_portfolios sp ON sp.id = p.sub_portfolio_id`

func (r *PostgresPropertiesRepository) ListProperties(ctx context.Context, opts ListOptions) ([]domain.Property, int, error) {
	w := &whereBuilder{}
	if opts.Restrict {
		w.restrictIDs("p.id", opts.IDs)
	}
	if id := opts.Filter.PortfolioID; id != "" {
		// 直属 portfolio，或经由子组合属于该 portfolio
		p := w.arg(id)
		w.add(fmt.Sprintf("(p.portfolio_id = %s OR sp.portfolio_id = %s)", p, p))
	}
	if id := opts.Filter.SubPortfolioID; id != "" {
		w.add(fmt.Sprintf("p.sub_portfolio_id = %s", w.arg(id)))
	}
	w.applyFilter(opts.Filter, propertyColumns)

	where := w.clause()
	var total int
	if err := r.db.QueryRowContext(ctx, propertyCountFrom+where, w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count properties: %w", err)
	}
	if total == 0 {
		return []domain.Property{}, 0, nil
	}

	q := propertySelect + where +
		orderBy(opts.Filter.Sort, propertyColumns, "p.created_at", "p.id") +
		w.pagination(opts.Filter)

	rows, err := r.db.QueryContext(ctx, q, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query properties: %w", err)
	}
	defer rows.Close()

	items := []domain.Property{}
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan property: %w", err)
		}
		items = append(items, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate properties: %w", err)
	}
	return items, total, nil
}

func (r *PostgresPropertiesRepository) GetProperty(ctx context.Context, propertyID string) (*domain.Property, error) {
	row := r.db.QueryRowContext(ctx, propertySelect+` WHERE p.id = $1`, propertyID)
	p, err := scanProperty(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("property %s: %w", propertyID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query property: %w", err)
	}
	return p, nil
}

func (r *PostgresPropertiesRepository) ListPropertyIDsByPortfolios(ctx context.Context, portfolioIDs []string) ([]string, error) {
	if len(portfolioIDs) == 0 {
		return []string{}, nil
	}
	return queryIDs(ctx, r.db, `
		SELECT p.id
		FROM properties p
		LEFT JOIN sub_portfolios sp ON sp.id = p.sub_portfolio_id
		WHERE p.portfolio_id = ANY($1) OR sp.portfolio_id = ANY($1)`,
		pq.Array(portfolioIDs),
	)
}

func (r *PostgresPropertiesRepository) ListPropertyIDsBySubPortfolios(ctx context.Context, subPortfolioIDs []string) ([]string, error) {
	if len(subPortfolioIDs) == 0 {
		return []string{}, nil
	}
	return queryIDs(ctx, r.db, `SELECT id FROM properties WHERE sub_portfolio_id = ANY($1)`, pq.Array(subPortfolioIDs))
}

func (r *PostgresPropertiesRepository) ListCredentials(ctx context.Context, propertyID string) ([]domain.PropertyCredential, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, property_id, ota, username, password, is_active, created_at, updated_at
		FROM property_credentials
		WHERE property_id = $1
		ORDER BY is_active DESC, created_at DESC`,
		propertyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query property credentials: %w", err)
	}
	defer rows.Close()

	out := []domain.PropertyCredential{}
	for rows.Next() {
		var c domain.PropertyCredential
		if err := rows.Scan(&c.ID, &c.PropertyID, &c.OTA, &c.Username, &c.Password, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan property credential: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanProperty(s rowScanner) (*domain.Property, error) {
	var (
		p                                         domain.Property
		portfolioID, subPortfolioID               sql.NullString
		expediaID, expediaStatus                  sql.NullString
		bookingID, bookingStatus                  sql.NullString
		agodaID, agodaStatus                      sql.NullString
		userEmail, userPassword                   sql.NullString
		spID, spName, spPortfolioID, pfID, pfName sql.NullString
	)
	err := s.Scan(
		&p.ID, &p.Name, &portfolioID, &subPortfolioID,
		&expediaID, &expediaStatus, &bookingID, &bookingStatus,
		&agodaID, &agodaStatus, &userEmail, &userPassword,
		&p.CreatedAt, &p.UpdatedAt,
		&spID, &spName, &spPortfolioID,
		&pfID, &pfName,
	)
	if err != nil {
		return nil, err
	}

	p.PortfolioID = nullStringPtr(portfolioID)
	p.SubPortfolioID = nullStringPtr(subPortfolioID)
	p.ExpediaID = nullStringPtr(expediaID)
	p.ExpediaStatus = nullStringPtr(expediaStatus)
	p.BookingID = nullStringPtr(bookingID)
	p.BookingStatus = nullStringPtr(bookingStatus)
	p.AgodaID = nullStringPtr(agodaID)
	p.AgodaStatus = nullStringPtr(agodaStatus)
	p.UserEmail = nullStringPtr(userEmail)
	p.UserPassword = nullStringPtr(userPassword)

	if spID.Valid {
		p.SubPortfolio = &domain.SubPortfolioRef{ID: spID.String, Name: spName.String, PortfolioID: spPortfolioID.String}
	}
	if pfID.Valid {
		p.Portfolio = &domain.PortfolioRef{ID: pfID.String, Name: pfName.String}
	}
	return &p, nil
}

// queryIDs 执行只返回 id 列的查询
func queryIDs(ctx context.Context, db *sql.DB, q string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ids: %w", err)
	}
	return ids, nil
}
