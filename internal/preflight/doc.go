// Package preflight provides readiness checks for the filesystem paths and
// external services the briefings daemon depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll at startup and logs each failure with a hint.
//   - The CLI "briefings doctor" command prints the same results locally,
//     without a running daemon.
//
// Service checks are skipped when the corresponding key or URL is unset.
package preflight
