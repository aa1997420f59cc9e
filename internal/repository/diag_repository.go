package repository

import (
	"context"
	"database/sql"
	"time"
)

// RequiredSchema lists the tables and columns the dashboard relies on.
var RequiredSchema = map[string][]string{
	"users":             {"id", "name", "email", "password", "role", "status", "phone", "username", "profile_image", "remember_token", "token_expires", "last_login"},
	"user_vehicles":     {"id", "user_id", "brand", "model", "license_plate", "year", "color", "image_path"},
	"carwashes":         {"id", "user_id", "name", "address", "city", "status"},
	"services":          {"id", "carwash_id", "name", "price"},
	"bookings":          {"id", "user_id", "carwash_id", "service_id", "booking_date", "booking_time", "status", "payment_status"},
	"business_profiles": {"id", "user_id", "business_name", "working_hours", "social_media", "services", "logo_path"},
}

// TableReport is the schema check result for one table.
type TableReport struct {
	Table          string   `json:"table"`
	Exists         bool     `json:"exists"`
	MissingColumns []string `json:"missing_columns"`
}

// QueryTiming is the measured duration of one sample query.
type QueryTiming struct {
	Name  string  `json:"name"`
	Query string  `json:"query"`
	MS    float64 `json:"ms"`
	Error string  `json:"error,omitempty"`
}

// sampleQueries are read-only statements timed by the diagnostics report.
var sampleQueries = []struct{ name, query string }{
	{"ping", "SELECT 1"},
	{"count_users", "SELECT COUNT(*) FROM users"},
	{"count_vehicles", "SELECT COUNT(*) FROM user_vehicles"},
	{"count_bookings", "SELECT COUNT(*) FROM bookings"},
	{"upcoming_bookings", "SELECT COUNT(*) FROM bookings WHERE booking_date >= CURDATE() AND status IN ('pending','confirmed')"},
}

// DiagRepo runs read-only diagnostic queries.
type DiagRepo struct{ db *sql.DB }

func NewDiagRepo(db *sql.DB) *DiagRepo { return &DiagRepo{db: db} }

// Columns returns the existing columns per table of the current database,
// restricted to tables.
func (r *DiagRepo) Columns(ctx context.Context) (map[string]map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT TABLE_NAME, COLUMN_NAME FROM information_schema.COLUMNS WHERE TABLE_SCHEMA = DATABASE()")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]map[string]bool{}
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return nil, err
		}
		if _, ok := RequiredSchema[table]; !ok {
			continue
		}
		if out[table] == nil {
			out[table] = map[string]bool{}
		}
		out[table][column] = true
	}
	return out, rows.Err()
}

// SchemaReport compares the live schema against RequiredSchema.
func (r *DiagRepo) SchemaReport(ctx context.Context) ([]TableReport, error) {
	cols, err := r.Columns(ctx)
	if err != nil {
		return nil, err
	}
	return CompareSchema(cols), nil
}

// CompareSchema builds the report from a table -> columns set, ordered like
// tableOrder.
func CompareSchema(existing map[string]map[string]bool) []TableReport {
	out := make([]TableReport, 0, len(RequiredSchema))
	for _, table := range tableOrder {
		rep := TableReport{Table: table, MissingColumns: []string{}}
		have, ok := existing[table]
		rep.Exists = ok
		for _, c := range RequiredSchema[table] {
			if !have[c] {
				rep.MissingColumns = append(rep.MissingColumns, c)
			}
		}
		out = append(out, rep)
	}
	return out
}

var tableOrder = []string{"users", "user_vehicles", "carwashes", "services", "bookings", "business_profiles"}

// Timings executes each sample query and reports how long it took.  A
// failing query is reported, not returned as an error.
func (r *DiagRepo) Timings(ctx context.Context) []QueryTiming {
	out := make([]QueryTiming, 0, len(sampleQueries))
	for _, q := range sampleQueries {
		start := time.Now()
		var n int64
		err := r.db.QueryRowContext(ctx, q.query).Scan(&n)
		t := QueryTiming{Name: q.name, Query: q.query, MS: float64(time.Since(start).Microseconds()) / 1000}
		if err != nil {
			t.Error = err.Error()
		}
		out = append(out, t)
	}
	return out
}
