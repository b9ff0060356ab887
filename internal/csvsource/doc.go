// Package csvsource finds and reads the CSV files of a load.
//
// A graphload.Source lists and opens files by name. DirSource reads a local
// directory, S3Source a bucket prefix and MemorySource an in-memory set used
// by tests. Discover turns a listing into a Plan of node and edge files:
//
//	nodes_<Label>.csv[.gz|.zst]   one node per row, "id" column required
//	edges_<TYPE>.csv[.gz|.zst]    one relationship per row, "source" and
//	                              "target" columns required
//	indexes.csv, constraints.csv  optional schema definitions
//
// NodeReader and EdgeReader stream rows as cypher records. Empty property
// cells are omitted and reserved columns never become properties.
package csvsource
