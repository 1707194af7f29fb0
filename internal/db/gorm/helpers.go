package gorm

import "database/sql"

// nullString converts a string to sql.NullString, treating "" as NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullInt64Ptr converts an optional int64 to sql.NullInt64.
func nullInt64Ptr(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

// nullFloat64 converts a float64 to sql.NullFloat64, treating 0 as NULL.
func nullFloat64(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: v != 0}
}

// stringOrEmpty unwraps a NullString to its string, "" when NULL.
func stringOrEmpty(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return ns.String
}
