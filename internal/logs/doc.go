// Package logs tails the daemon's JSON log file for `briefings logs`.
//
// Tail reads the last N lines or everything after a byte offset, and in
// follow mode polls until new lines arrive or the wait elapses. Match
// narrows results to one job or a minimum level by inspecting the JSON
// fields the logging package writes.
package logs
