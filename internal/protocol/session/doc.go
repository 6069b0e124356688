// Package session owns the per-connection protocol engine.
//
// Ownership boundary:
// - request correlation (pending request table, timeouts)
// - ordered outbound send queue
// - read loop + dispatch pipeline (frame -> envelope -> packet -> handlers)
// - connection lifecycle and teardown
package session
