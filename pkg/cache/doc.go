// Package cache stores records of submitted operations in a local
// SQLite database. The cache is what lets a second CLI invocation list
// in-flight operations or wait on one started earlier, since the
// provider's operation list is scoped per location and the CLI does
// not keep a daemon around.
package cache
