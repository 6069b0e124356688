// Package packet owns the typed packet contract and the id registry that
// dispatch consults.
//
// Ownership boundary:
// - Packet / Sender contracts
// - Descriptor (factory + optional self-handling hook)
// - concurrent id -> Descriptor registry
package packet
