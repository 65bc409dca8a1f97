// Package sqlite implements authsystem.UserStore on an embedded SQLite
// database using the pure-Go modernc.org/sqlite driver.
//
// Timestamps are stored as Unix nanoseconds. The connection pool is limited
// to a single connection, so writes are serialized by the driver.
package sqlite
