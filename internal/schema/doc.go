// Package schema resolves member paths of stored documents into SQL
// locators.
//
// Every document type is stored in its own table with an id column and a
// jsonb data column:
//
//	create table public.mt_doc_post (id uuid primary key, data jsonb not null)
//
// A DocumentMapping describes one such table. FieldFor maps a member path
// (e.g. Address.City) to a Field whose locator is a JSON path expression
// against the data column:
//
//	d.data -> 'address' ->> 'city'
//	CAST(d.data ->> 'age' as integer)
//
// A ChildDocument describes the rows of a flattened array. Its locators are
// rooted at the synthetic alias column (sub0.x) instead of d.data, which is
// how clauses after a flatten are re-scoped onto element rows.
//
// Scalar casts come from a Conversions registry value. The registry is
// passed explicitly; there is no process-wide conversion table.
package schema
