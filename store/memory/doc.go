// Package memory provides an in-process authsystem.UserStore for development
// and tests. Nothing is persisted.
package memory
