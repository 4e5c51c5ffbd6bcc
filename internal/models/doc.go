// Package models defines domain entities for the mdx media lookup and playlist sharing service.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs describing external data
//   - [MediaDescription] : Normalised extraction result from any platform
//   - [PlaylistContent] : Playlist header plus its items, as returned to readers
//
// 2. Persistent Entities: Database-backed records
//   - [User] : Accounts keyed by a unique "@" handle
//   - [Playlist] : User-owned playlist with a [Visibility] policy
//   - [PlaylistItem] : A single media entry belonging to one playlist
//
// [Visibility] is a tagged variant (private, public, or code with its access code),
// so a code-shared playlist without a code cannot be constructed.
//
// Persistent entities implement [Model], providing ID, creation time and validation.
package models
