package facetstore

import "github.com/lib/pq"

// pqStringArray and pqInt64Array adapt Go slices to Postgres array
// parameters for `= ANY($n)` predicates.
func pqStringArray(v []string) interface{} { return pq.Array(v) }
func pqInt64Array(v []int64) interface{}   { return pq.Array(v) }
