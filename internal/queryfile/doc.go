// Package queryfile reads query documents for the docsql CLI.
//
// A query file names the root document, lists clauses in order and may
// attach eager-load includes:
//
//	from: "Post"
//	clauses: [
//		{where: {field: "Published", op: "=", value: true}},
//		{flatten: "Comments"},
//		{where: {field: "Likes", op: ">", value: 2}},
//		{orderBy: [{field: "Likes", desc: true}]},
//		{take: 20},
//	]
//	includes: [{type: "User", field: "AuthorId", alias: "u", kind: "left"}]
//
// The same shape is accepted as YAML or JSON. Every file is unified with
// the embedded #Query schema before it is converted to a queryir.Query.
package queryfile
