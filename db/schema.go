package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
)

// Additive schema evolution. Databases built under older decode revisions
// lack the columns newer layouts produce; before every build the live
// table definition is compared against the declared column set and
// missing columns are added with a null default. Nothing is ever dropped,
// renamed or rewritten, so the evolver is safe to run on every
// invocation. An existing column whose type disagrees with the
// declaration is a hard error: silently coercing it would corrupt the
// derived tables.

type columnDef struct {
	name string
	typ  string
}

// expectedColumns declares, per evolving table, every column the current
// decode logic writes. Keeping the whole set in one place makes the
// additive-migration story auditable instead of scattering
// column-exists checks around the builders.
var expectedColumns = map[string][]columnDef{
	"races": {
		{"race_key", "TEXT"},
		{"yyyymmdd", "TEXT"},
		{"course_code", "TEXT"},
		{"kai", "TEXT"},
		{"day", "TEXT"},
		{"race_no", "TEXT"},
		{"grade_code", "TEXT"},
		{"race_name_short", "TEXT"},
		{"distance_m", "INTEGER"},
		{"track_code", "TEXT"},
		{"surface", "TEXT"},
		{"created_at", "TEXT"},
	},
	"entries": {
		{"entry_key", "TEXT"},
		{"race_key", "TEXT"},
		{"horse_no", "TEXT"},
		{"horse_id", "TEXT"},
		{"finish_pos", "INTEGER"},
		{"is_place", "INTEGER"},
		{"jockey_code", "TEXT"},
		{"trainer_code", "TEXT"},
		{"body_weight", "INTEGER"},
		{"handicap_weight_x10", "INTEGER"},
	},
	"place_odds": {
		{"race_key", "TEXT"},
		{"horse_no", "TEXT"},
		{"place_odds_min", "REAL"},
		{"place_odds_max", "REAL"},
		{"announced_at", "TEXT"},
		{"updated_at", "TEXT"},
	},
}

// EvolveSchema adds any declared column missing from the live tables.
// Tables that do not exist yet are left to CreateTables. No-op when
// everything is current.
func EvolveSchema(ctx context.Context, db *bun.DB) error {
	for table, cols := range expectedColumns {
		if err := evolveTable(ctx, db, table, cols); err != nil {
			return fmt.Errorf("evolving %s: %w", table, err)
		}
	}
	return nil
}

func evolveTable(ctx context.Context, db *bun.DB, table string, cols []columnDef) error {
	existing, err := tableColumns(ctx, db, table)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		return nil
	}

	for _, col := range cols {
		liveType, ok := existing[col.name]
		if !ok {
			stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, col.name, col.typ)
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("adding column %s: %w", col.name, err)
			}
			continue
		}
		if !typeCompatible(liveType, col.typ) {
			return fmt.Errorf("column %s has type %q, expected %q", col.name, liveType, col.typ)
		}
	}
	return nil
}

// tableColumns reads the live definition via PRAGMA table_info. Returns
// an empty map when the table does not exist.
func tableColumns(ctx context.Context, db *bun.DB, table string) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]string)
	for rows.Next() {
		var (
			cid       int
			name, typ string
			notnull   int
			dflt      *string
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols[strings.ToLower(name)] = typ
	}
	return cols, rows.Err()
}

// typeCompatible compares by SQLite affinity, not exact spelling:
// VARCHAR(10) and TEXT both carry text affinity and must not be treated
// as a conflict.
func typeCompatible(live, declared string) bool {
	return affinity(live) == affinity(declared)
}

func affinity(typ string) string {
	t := strings.ToUpper(typ)
	switch {
	case strings.Contains(t, "INT"), strings.Contains(t, "BOOL"):
		return "INTEGER"
	case strings.Contains(t, "CHAR"), strings.Contains(t, "CLOB"), strings.Contains(t, "TEXT"):
		return "TEXT"
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"):
		return "REAL"
	case t == "":
		return "BLOB"
	default:
		return "NUMERIC"
	}
}
