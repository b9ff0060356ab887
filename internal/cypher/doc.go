// Package cypher builds the query text sent to the graph database.
//
// Every CSV value is inlined as a literal rather than passed as a parameter,
// so the batch of rows travels as one self-contained UNWIND query. Because
// correctness hinges on escaping, the literal encoder is total: every cell
// produces exactly one literal and no input can terminate a string early.
//
// # Numeric classification
//
//	""        null
//	"42" "-7" "0" "-0"          integer
//	"007" "-01" "+5" " 5"       string (non-canonical integers keep their text)
//	"9223372036854775808"       string (overflows int64)
//	"3.14" ".5" "1e3" "-2.5E-3" float
//	"NaN" "Inf" "0x1F" "1,000"  string
//
// Identity keys (node id, edge endpoints) are always encoded as strings so
// that a node file and an edge file agree on 1001 versus '1001'.
package cypher
