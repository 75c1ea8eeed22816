// Package sqldriver implements the pipeline connection SPI on top of
// database/sql, so any registered driver can back a pipeline: lib/pq, the pgx
// stdlib driver behind gorm, modernc.org/sqlite or go-sqlmock in tests.
//
// Each invocation reserves one physical connection with (*sql.DB).Conn:
//
//	db, err := sql.Open("sqlite", "file:goals.db?_pragma=busy_timeout(5000)")
//	if err != nil {
//		return err
//	}
//	src := sqldriver.NewSource(db)
//
//	id, err := pipeline.NewOperations(src).Insert(ctx, "insert into goal (name) values ($1)", "first")
//
// Statements whose leading keyword produces rows (select, with, values, show,
// explain, pragma, table) or that carry a RETURNING clause run through
// QueryContext; everything else runs through ExecContext and reports
// RowsAffected from the driver.
//
// Transactions are begun on a context detached from the caller's, because
// database/sql rolls a transaction back by itself when that context ends. The
// pipeline issues the rollback on its own cleanup path instead.
package sqldriver
