package todo

import (
	"database/sql"
	"fmt"
	"time"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// scanTodo reads one row in selectColumns order.
func scanTodo(row rowScanner, driver string) (Todo, error) {
	var (
		t    Todo
		desc sql.NullString
	)
	if err := row.Scan(&t.ID, &t.Title, &desc, &t.Completed, &t.CreatedAt); err != nil {
		return Todo{}, err
	}
	if desc.Valid {
		t.Description = &desc.String
	}
	if isPostgres(driver) {
		t.CreatedAt = localWallClock(t.CreatedAt)
	}
	return t, nil
}

// localWallClock reads the wall clock of ts as local time. The pg drivers
// write TIMESTAMP columns without a zone and hand them back as UTC.
func localWallClock(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), ts.Day(),
		ts.Hour(), ts.Minute(), ts.Second(), ts.Nanosecond(), time.Local)
}

func isPostgres(driver string) bool {
	return driver == "pgx" || driver == "postgres"
}

func nullableString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func optionalString(value Optional[string]) sql.NullString {
	if value.Null {
		return sql.NullString{}
	}
	return sql.NullString{String: value.Value, Valid: true}
}

// containsExpr is a case-sensitive substring test; LIKE folds ASCII case on SQLite.
func containsExpr(driver, column, placeholder string) string {
	if isPostgres(driver) {
		return fmt.Sprintf("strpos(%s, %s) > 0", column, placeholder)
	}
	return fmt.Sprintf("instr(%s, %s) > 0", column, placeholder)
}

// placeholder is the n-th bind parameter; go-sqlite3 accepts $N as well.
func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

// now is the creation clock. Microseconds survive every supported driver.
var now = func() time.Time {
	return time.Now().Truncate(time.Microsecond)
}
