// Package storage defines the persistence contracts of the game host.
//
// Two stores back a running game:
//   - AuditStore: an append-only log of journalable facts, also queried by
//     the spy perk for a player's most recent DMs.
//   - SnapshotStore: the latest serialized actor tree per game, read back
//     when a game is first touched after a restart.
//
// Implementations live in subpackages. Errors are wrapped with %w; a missing
// record is reported as ErrNotFound.
package storage
