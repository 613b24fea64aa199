// Package query holds the entity data query model and its evaluation over
// in-memory records.
//
// External queries (EntityDataQuery, EntityCountQuery) are decoded from json
// and translated with a Translator: dynamic keys are resolved through the key
// dictionary, unknown keys are dropped with a warning. The Evaluator then
// answers two questions per record: does it match the key filters and the
// text search, and what is its sort value.
//
// String predicates support the SQL-LIKE wildcards '%' and '_' for
// STARTS_WITH, ENDS_WITH, CONTAINS and NOT_CONTAINS. Compiled patterns are
// kept in a go-cache and recompiled after they expire.
//
// Applying a predicate to a value of another kind is a programming error and
// panics, it is never downgraded to "no match".
package query
