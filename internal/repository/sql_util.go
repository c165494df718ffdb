package repository

import "database/sql"

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// strArg *string -> SQL 参数（nil -> NULL）
func strArg(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// rowScanner *sql.Row / *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}
