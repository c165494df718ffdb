package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/domain"
	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/query"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock
}

var propertyRowColumns = []string{
	"id", "name", "portfolio_id", "sub_portfolio_id",
	"expedia_id", "expedia_status", "booking_id", "booking_status",
	"agoda_id", "agoda_status", "user_email", "user_password",
	"created_at", "updated_at",
	"sp_id", "sp_name", "sp_portfolio_id",
	"pf_id", "pf_name",
}

func TestListProperties_SearchAndPagination(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewPostgresPropertiesRepository(db, zap.NewNop())

	spec := query.Build(map[string]any{"search": "inn", "page": int64(3), "limit": int64(10)}, PropertySchema)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM properties p LEFT JOIN sub_portfolios sp ON sp.id = p.sub_portfolio_id WHERE (COALESCE(p.name, '') ILIKE $1`)).
		WithArgs("%inn%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(23))

	rows := sqlmock.NewRows(propertyRowColumns).AddRow(
		"prop-21", "Harbor Inn", nil, "sp-1",
		"E1", "active", nil, nil,
		nil, nil, "ops@harbor.test", "cipher",
		now, now,
		"sp-1", "West", "pf-1",
		nil, nil,
	)
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY p.created_at DESC, p.id DESC LIMIT $2 OFFSET $3`)).
		WithArgs("%inn%", 10, 20).
		WillReturnRows(rows)

	items, total, err := repo.ListProperties(context.Background(), ListOptions{Filter: spec})
	require.NoError(t, err)
	assert.Equal(t, 23, total)
	require.Len(t, items, 1)

	p := items[0]
	assert.Equal(t, "prop-21", p.ID)
	assert.Nil(t, p.PortfolioID)
	require.NotNil(t, p.SubPortfolioID)
	assert.Equal(t, "sp-1", *p.SubPortfolioID)
	require.NotNil(t, p.SubPortfolio)
	assert.Equal(t, "pf-1", p.SubPortfolio.PortfolioID)
	assert.Nil(t, p.Portfolio)
	assert.Equal(t, "cipher", *p.UserPassword)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListProperties_RestrictedWithPortfolioFilter(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewPostgresPropertiesRepository(db, zap.NewNop())

	spec := query.Build(map[string]any{"portfolio_id": "pf-1", "agoda_status": "active"}, PropertySchema)
	ids := []string{"prop-1", "prop-2"}

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE p.id = ANY($1) AND (p.portfolio_id = $2 OR sp.portfolio_id = $2) AND p.agoda_status = $3`)).
		WithArgs(pq.Array(ids), "pf-1", "active").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	items, total, err := repo.ListProperties(context.Background(), ListOptions{Filter: spec, Restrict: true, IDs: ids})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, items)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListProperties_CountError(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewPostgresPropertiesRepository(db, zap.NewNop())

	mock.ExpectQuery(`SELECT COUNT`).WillReturnError(errors.New("connection reset"))

	_, _, err := repo.ListProperties(context.Background(), ListOptions{Filter: query.Build(nil, PropertySchema)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestGetProperty_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewPostgresPropertiesRepository(db, zap.NewNop())

	mock.ExpectQuery(`SELECT`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	p, err := repo.GetProperty(context.Background(), "missing")
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListPropertyIDsByPortfolios(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewPostgresPropertiesRepository(db, zap.NewNop())

	ids, err := repo.ListPropertyIDsByPortfolios(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, ids)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE p.portfolio_id = ANY($1) OR sp.portfolio_id = ANY($1)`)).
		WithArgs(pq.Array([]string{"pf-1"})).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("prop-1").AddRow("prop-2"))

	ids, err = repo.ListPropertyIDsByPortfolios(context.Background(), []string{"pf-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"prop-1", "prop-2"}, ids)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListSubPortfolios_HugePageIsBounded(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewPostgresSubPortfoliosRepository(db, zap.NewNop())

	spec := query.Build(map[string]any{"page": int64(100000000000000000), "limit": int64(100)}, SubPortfolioSchema)

	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta(`LIMIT $1 OFFSET $2`)).
		WithArgs(100, (query.MaxPage-1)*100).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "description", "portfolio_id", "created_at", "updated_at", "pf_id", "pf_name", "cnt",
		}))

	items, total, err := repo.ListSubPortfolios(context.Background(), ListOptions{Filter: spec})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Empty(t, items)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListSubPortfolios_SortByPropertyCount(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewPostgresSubPortfoliosRepository(db, zap.NewNop())

	spec := query.Build(map[string]any{"sortBy": "propertyCount", "sortOrder": "desc"}, SubPortfolioSchema)
	now := time.Now()

	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY COALESCE(pc.cnt, 0) DESC, sp.id DESC LIMIT $1 OFFSET $2`)).
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "description", "portfolio_id", "created_at", "updated_at", "pf_id", "pf_name", "cnt",
		}).AddRow("sp-1", "West", nil, "pf-1", now, now, "pf-1", "Coastal", 4))

	items, total, err := repo.ListSubPortfolios(context.Background(), ListOptions{Filter: spec})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, 4, items[0].PropertyCount)
	assert.Nil(t, items[0].Description)
	assert.Equal(t, "Coastal", items[0].Portfolio.Name)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListPortfolios_Restricted(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewPostgresPortfoliosRepository(db, zap.NewNop())

	spec := query.Build(map[string]any{"search": "50%"}, PortfolioSchema)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM portfolios pf WHERE pf.id = ANY($1) AND (COALESCE(pf.name, '') ILIKE $2)`)).
		WithArgs(pq.Array([]string{"pf-1"}), `%50\%%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT`).
		WithArgs(pq.Array([]string{"pf-1"}), `%50\%%`, 10, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "created_by", "updated_by", "created_at", "updated_at", "spc", "pc",
		}).AddRow("pf-1", "50% Club", "admin-1", nil, now, now, 2, 7))

	items, total, err := repo.ListPortfolios(context.Background(), ListOptions{Filter: spec, Restrict: true, IDs: []string{"pf-1"}})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].SubPortfolioCount)
	assert.Equal(t, 7, items[0].PropertyCount)
	assert.Equal(t, "admin-1", *items[0].CreatedBy)
	assert.Nil(t, items[0].UpdatedBy)

	require.NoError(t, mock.ExpectationsWereMet())
}

var grantRowColumns = []string{"id", "user_id", "portfolio_id", "sub_portfolio_id", "property_id", "created_at", "updated_at"}

func TestUpsertGrant(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewPostgresGrantsRepository(db, zap.NewNop())
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT ON CONSTRAINT uq_user_feature_access_scope DO UPDATE SET updated_at = NOW()`)).
		WithArgs(sqlmock.AnyArg(), "user-1", nil, nil, "prop-1").
		WillReturnRows(sqlmock.NewRows(grantRowColumns).AddRow("g-1", "user-1", nil, nil, "prop-1", now, now))

	empty := ""
	scope := domain.PropertyScope("prop-1")
	scope.PortfolioID = &empty

	g, err := repo.UpsertGrant(context.Background(), "user-1", scope)
	require.NoError(t, err)
	assert.Equal(t, "g-1", g.ID)
	assert.Nil(t, g.PortfolioID)
	assert.Equal(t, "prop-1", *g.PropertyID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindGrantByUserAndScope_None(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewPostgresGrantsRepository(db, zap.NewNop())

	mock.ExpectQuery(regexp.QuoteMeta(`portfolio_id IS NOT DISTINCT FROM $2::text`)).
		WithArgs("user-1", "pf-1", nil, nil).
		WillReturnError(sql.ErrNoRows)

	g, err := repo.FindGrantByUserAndScope(context.Background(), "user-1", domain.PortfolioScope("pf-1"))
	require.NoError(t, err)
	assert.Nil(t, g)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindFirstMatchingGrant(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewPostgresGrantsRepository(db, zap.NewNop())
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE user_id = $1 AND ((property_id = $2) OR (sub_portfolio_id = $3) OR (portfolio_id = $4)) ORDER BY created_at ASC, id ASC LIMIT 1`)).
		WithArgs("user-1", "prop-1", "sp-1", "pf-1").
		WillReturnRows(sqlmock.NewRows(grantRowColumns).AddRow("g-9", "user-1", "pf-1", nil, nil, now, now))

	g, err := repo.FindFirstMatchingGrant(context.Background(), "user-1", []domain.GrantScope{
		domain.PropertyScope("prop-1"),
		domain.SubPortfolioScope("sp-1"),
		domain.PortfolioScope("pf-1"),
	})
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, "g-9", g.ID)

	// 没有候选：不查询
	g, err = repo.FindFirstMatchingGrant(context.Background(), "user-1", nil)
	require.NoError(t, err)
	assert.Nil(t, g)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteGrant_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewPostgresGrantsRepository(db, zap.NewNop())

	mock.ExpectQuery(`DELETE FROM user_feature_access_permissions`).
		WithArgs("g-x").
		WillReturnError(sql.ErrNoRows)

	g, err := repo.DeleteGrant(context.Background(), "g-x")
	assert.Nil(t, g)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListGrants_FilterByUser(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewPostgresGrantsRepository(db, zap.NewNop())
	now := time.Now()

	spec := query.Build(map[string]any{"user_id": "user-1", "portfolio_id": "pf-1"}, GrantSchema)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM user_feature_access_permissions WHERE portfolio_id = $1 AND user_id = $2`)).
		WithArgs("pf-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4`)).
		WithArgs("pf-1", "user-1", 10, 0).
		WillReturnRows(sqlmock.NewRows(grantRowColumns).AddRow("g-1", "user-1", "pf-1", nil, nil, now, now))

	items, total, err := repo.ListGrants(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "pf-1", *items[0].PortfolioID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	for range schemaStatements {
		mock.ExpectExec(`CREATE`).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	require.NoError(t, Migrate(context.Background(), db, zap.NewNop()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_StopsOnError(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(`CREATE EXTENSION`).WillReturnError(errors.New("permission denied"))

	err := Migrate(context.Background(), db, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statement 1/")
}

func TestMigrate_ReportsOldPostgres(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	var grantsTable int
	for i, stmt := range schemaStatements {
		if regexp.MustCompile(`NULLS NOT DISTINCT`).MatchString(stmt) {
			grantsTable = i
			break
		}
		mock.ExpectExec(`CREATE`).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS user_feature_access_permissions`).
		WillReturnError(&pq.Error{Code: "42601", Message: `syntax error at or near "NULLS"`})

	err := Migrate(context.Background(), db, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PostgreSQL 15+ required")
	var pqErr *pq.Error
	require.ErrorAs(t, err, &pqErr)
	assert.NotZero(t, grantsTable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderByAndEscapeLike(t *testing.T) {
	cols := columnMap{"name": "p.name"}
	assert.Equal(t, " ORDER BY p.name ASC, p.id ASC", orderBy(query.Sort{Field: "name"}, cols, "p.created_at", "p.id"))
	assert.Equal(t, " ORDER BY p.created_at DESC, p.id DESC", orderBy(query.Sort{Field: "password", Desc: true}, cols, "p.created_at", "p.id"))

	assert.Equal(t, `100\% a\_b \\x`, escapeLike(`100% a_b \x`))
}

func TestApplyFilter_IgnoresUnknownColumns(t *testing.T) {
	w := &whereBuilder{}
	w.applyFilter(query.FilterSpec{
		Equals: []query.Equal{{Field: "user_password", Value: "x"}, {Field: "name", Value: "A"}},
	}, columnMap{"name": "p.name"})

	assert.Equal(t, " WHERE p.name = $1", w.clause())
	assert.Equal(t, []any{"A"}, w.args)
}
