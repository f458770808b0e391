// Package kvstore implements the scan repository and the scan rate limiter
// on top of a kv.Store.
//
// Layout:
//   - scans:<sessionID> holds the JSON array of that session's scans
//   - ratelimit:<sessionID> holds the session's current window
//
// Timestamps are persisted as Unix milliseconds.
package kvstore
