// Package jobs tracks the lifecycle of asynchronous production work.
//
// A Job is created synchronously by a trigger and then advanced by exactly
// one worker. Statuses only move forward (queued, running, then done or
// error); the registry drops any status change out of a terminal state so a
// late or duplicate update can never resurrect a finished job. Records are
// retained up to a fixed count, evicting the oldest by creation time.
package jobs
