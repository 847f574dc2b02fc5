// Package database connects the SQL report stores.
//
// Two backends are supported:
//
//   - PostgreSQL, using a pgx connection pool
//   - SQLite, using modernc.org/sqlite, for development and single node use
//
// Both keep every revision of a report as a row of one table, with the
// content stored inline. Deleting a revision only marks it; Purge removes
// marked rows.
//
// # Usage
//
//	cfg := database.Config{
//	    Type:  "sqlite",
//	    DSN:   "cannedreports.db",
//	    Table: "canned_reports",
//	}
//
//	store, cleanup, err := database.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer cleanup()
//
// Connect opens the connection, runs migrations and validates the schema
// before returning.
package database
