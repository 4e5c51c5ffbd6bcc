// Package repositories implements SQLite persistence for all domain entities.
//
// Repositories hold rows, not policy: they never decide who may read or change a record.
// Ownership and visibility decisions live in the access package and are applied by callers.
//
// Key Implementations:
//   - [UserRepository] : Accounts with username/handle lookups
//   - [PlaylistRepository] : Playlists, item counts and access-code lookups
//   - [ItemRepository] : Playlist items, including the item -> playlist join used for ownership checks
//
// [Store] groups the three over one connection. [Store.WithTx] rebinds them to a single
// transaction so a check and the mutation it guards commit (or roll back) together.
//
// Constraint violations surface as [shared.ErrConflict]; missing rows as [shared.ErrNotFound];
// anything else is wrapped with [shared.ErrStorage].
package repositories
