// Package notify runs outbound account notifications off the request path.
//
// A [Dispatcher] owns a bounded queue and a fixed worker pool. Enqueue never
// blocks: when the queue is full the job is dropped, counted, and logged at
// error level. Every delivery runs under its own timeout and its outcome is
// logged, so a failed email is never silent and never fails the request that
// triggered it.
package notify
