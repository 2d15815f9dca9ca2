// Package notifications delivers briefing events via ntfy.
//
// The ntfy implementation posts to the topic URL configured in config.toml
// and degrades to a no-op when no topic is set. Observer adapts job and
// series changes into the enumerated events so producers never call the
// notifier directly.
package notifications
