package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// pqSyntaxError PostgreSQL SQLSTATE syntax_error
const pqSyntaxError = "42601"

// schemaStatements 按顺序执行，全部可重复执行（IF NOT EXISTS）
// UNIQUE NULLS NOT DISTINCT 需要 PostgreSQL 15+
var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,

	`CREATE TABLE IF NOT EXISTS portfolios (
		id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
		name        TEXT NOT NULL,
		created_by  TEXT,
		updated_by  TEXT,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS sub_portfolios (
		id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
		name         TEXT NOT NULL,
		description  TEXT,
		portfolio_id TEXT NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sub_portfolios_portfolio ON sub_portfolios(portfolio_id)`,

	`CREATE TABLE IF NOT EXISTS properties (
		id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
		name             TEXT NOT NULL,
		portfolio_id     TEXT REFERENCES portfolios(id) ON DELETE SET NULL,
		sub_portfolio_id TEXT REFERENCES sub_portfolios(id) ON DELETE SET NULL,
		expedia_id       TEXT,
		expedia_status   TEXT,
		booking_id       TEXT,
		booking_status   TEXT,
		agoda_id         TEXT,
		agoda_status     TEXT,
		user_email       TEXT,
		user_password    TEXT,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_properties_portfolio ON properties(portfolio_id)`,
	`CREATE INDEX IF NOT EXISTS idx_properties_sub_portfolio ON properties(sub_portfolio_id)`,

	`CREATE TABLE IF NOT EXISTS property_credentials (
		id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
		property_id TEXT NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
		ota         TEXT NOT NULL,
		username    TEXT NOT NULL,
		password    TEXT NOT NULL,
		is_active   BOOLEAN NOT NULL DEFAULT TRUE,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_property_credentials_property ON property_credentials(property_id)`,

	// 范围字段不加外键：实体删除后遗留的授权展开为空集
	`CREATE TABLE IF NOT EXISTS user_feature_access_permissions (
		id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
		user_id          TEXT NOT NULL,
		portfolio_id     TEXT,
		sub_portfolio_id TEXT,
		property_id      TEXT,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT uq_user_feature_access_scope
			UNIQUE NULLS NOT DISTINCT (user_id, portfolio_id, sub_portfolio_id, property_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_user_feature_access_user ON user_feature_access_permissions(user_id)`,
}

// Migrate 创建表结构
func Migrate(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	for i, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) {
				logger.Error("Migration statement rejected",
					zap.Int("statement", i+1),
					zap.String("sqlstate", string(pqErr.Code)),
					zap.String("message", pqErr.Message),
				)
				if pqErr.Code == pqSyntaxError && strings.Contains(stmt, "NULLS NOT DISTINCT") {
					return fmt.Errorf("migration statement %d/%d failed (PostgreSQL 15+ required): %w", i+1, len(schemaStatements), err)
				}
			}
			return fmt.Errorf("migration statement %d/%d failed: %w", i+1, len(schemaStatements), err)
		}
	}
	logger.Info("Schema migration applied", zap.Int("statements", len(schemaStatements)))
	return nil
}
