// Package services defines shared utilities consumed by the production
// pipeline and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, series IDs, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures surface with
//     consistent component context and map cleanly onto API status codes.
//
// Client packages for the generation, speech, and intelligence services live
// in subdirectories.
package services
