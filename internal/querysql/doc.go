// Package querysql compiles queryir clause sequences to parameterized
// PostgreSQL over jsonb document tables.
//
// A query without a Flatten clause selects whole documents:
//
//	select d.data from public.mt_doc_post as d where d.data ->> 'Title' = $1
//
// A query with a Flatten clause unnests one array member into a sub-select
// and re-scopes every later clause onto the synthetic child document
// sub<N>, whose single column x holds one array element per row:
//
//	select x from (select jsonb_array_elements(d.data -> 'Tags') as x
//	  from public.mt_doc_post as d) as sub0
//	  where sub0.x #>> '{}' != $1 order by sub0.x #>> '{}' LIMIT 10
//
// Eager-load joins (Include) add JOIN fragments and wrap the row selector
// so each row also feeds a related document to a Sink.
//
// CRITICAL: literal values are never rendered into SQL text. They are
// bound through Command as $n placeholders. Take and Skip counts are
// integers owned by the query and rendered as literals.
package querysql
