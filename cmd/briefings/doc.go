// Command briefings is the operator CLI for the briefings daemon.
//
// It runs the daemon in the foreground (`briefings daemon`) or detached
// (`briefings start`), and drives a running daemon over its HTTP API:
// submitting episodes and series, inspecting the queue and feed, triggering
// scheduled routines and following job events on the bus.
package main
