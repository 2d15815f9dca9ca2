// Package daemon runs the long-lived briefings process.
//
// It holds the single-instance flock and pid file, and serves the HTTP API
// that queues generate, chat and series work on the workflow manager. It
// also serves the scheduled-trigger endpoints and the public feed and audio
// files.
//
// Keep orchestration logic in workflow and its collaborators; handlers here
// decode requests, call the manager and shape responses.
package daemon
