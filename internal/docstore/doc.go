// Package docstore persists whole JSON documents by name.
//
// Every collection the daemon owns (jobs, series, episodes, the production
// and engagement logs, the daily caches) is stored as one document and
// mutated with a load, modify, persist cycle under a per-document lock. Two
// backends are available: one JSON file per document under the data
// directory (written via temp file and rename, guarded by an advisory file
// lock) and a single SQLite table keyed by document name.
//
// A document whose backing record is missing or unparsable loads as the
// caller's default value. Corruption is logged and never surfaced as an
// error, so callers validate shape themselves.
package docstore
