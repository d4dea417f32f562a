// Package models defines the core domain models for supportme.
//
// # Entities
//
//   - User: a registered account (email + password auth, display name, photo)
//   - Room: a named support group / chat channel with capacity and an admin
//   - GroupMember: the join row between a user and a room, carrying the
//     favorite flag, anonymity, nickname/avatar snapshot, and last-seen marker
//   - Message: an append-only chat message inside a room
//   - Reaction: a (user, reaction type) pair attached to a message
//
// # Design Principles
//
//  1. Exactly one GroupMember row per (user, room) pair, enforced by the store
//  2. Messages are never edited; ordering is by a store-assigned sequence
//  3. Avoid circular references: use ID strings instead of pointers for
//     relationships
package models
