// Package pipeline produces one episode per job.
//
// A Producer walks a job from running to done or error: it resolves the two
// voices, writes the script (or the fixed trailer), renders audio, records
// the episode and republishes the feed through the episode store. Every
// failure ends on the job record; no episode is written for a failed job.
//
// Three entry points share the same stages with different progress text and
// ordering: Generate for topic-driven episodes and trailers, Chat for
// free-text requests, and SeriesEpisode for one step of a series arc.
package pipeline
