// Package postgres implements authsystem.UserStore on PostgreSQL through pgx.
//
// The users table carries a UNIQUE constraint on email and a partial unique
// index on the outstanding confirmation token. Conditional updates are single
// statements, so no explicit transactions are needed.
//
// Apply the embedded schema with Migrate before serving traffic.
package postgres
