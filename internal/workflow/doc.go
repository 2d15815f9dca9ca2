// Package workflow accepts job and series submissions and runs them on a
// bounded worker pool.
//
// The Manager is the single entry point used by the HTTP API: it checks
// service keys before anything is persisted, creates the job or series
// record synchronously, and hands the long-running work to the Pool. It
// also owns the daily topic and suggestion caches and the two scheduled
// routines (nightly trailers and morning prep), each of which runs at most
// once per local date unless forced.
//
// Tasks never observe request cancellation. Shutdown waits for in-flight
// work through Pool.Wait.
package workflow
