// Package apiclient is the CLI's HTTP client for the briefings daemon API.
//
// Every method maps to one daemon route and decodes into the same types the
// daemon encodes. Non-2xx replies surface as *Error carrying the daemon's
// "error" message; connection failures satisfy IsUnavailable so callers can
// print a "start the daemon" hint instead of a raw dial error.
package apiclient
