// Package sink merges accepted videos into durable targets: a JSON file with
// full records, a JSON file with bare IDs, and any number of stores.
//
// Both files hold each ID at most once. A merge reads the whole file, appends
// the new entries, keeps the last value for an ID at the position where the
// ID first appeared, and replaces the file through a rename. Concurrent
// writers against the same files are not supported.
package sink
