package repository

import "database/sql"

// nullFloat64 wraps a possibly-nil pointer for a nullable REAL column,
// following the teacher's score_repository.go nullFloat64 helper.
func nullFloat64(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// fromNullFloat64 is the inverse of nullFloat64, used when scanning rows
// back into pointer-typed domain fields.
func fromNullFloat64(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
