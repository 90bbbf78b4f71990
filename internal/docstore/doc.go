// Package docstore executes compiled document queries against PostgreSQL.
//
// Documents live in one table per document type:
//
//	CREATE TABLE <schema>.mt_doc_<name> (id uuid PRIMARY KEY, data jsonb NOT NULL)
//
// The store runs querysql plans through database/sql with the pgx driver
// and materializes every row through the plan's selector, which also feeds
// the sinks of eager-load joins in row order.
package docstore
