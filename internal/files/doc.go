// Package files provides access to the remote file catalog exposed to
// licensed clients.
//
// Two operations are offered:
//
// List: fetches the catalog of files the current license grants access
// to. Download: streams a single file's contents to a writer, throttled
// by a client-side rate limiter so bursts of downloads do not trip the
// server's own limits.
//
// Both operations require a valid session; the current token is
// refreshed transparently before each call.
package files
