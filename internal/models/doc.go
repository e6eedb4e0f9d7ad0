// Package models defines domain entities for the playlist sync service.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs representing external provider data
//   - [Track] : Song metadata as listed by a playlist source
//
// 2. Persistent Entities: Database-backed models
//   - [Playlist] : A registered playlist with its provider tag, source reference, and label
//
// The [Provider] type is the closed set of playlist sources. The provider of a
// playlist is decided once, at registration time, and dispatches which source
// implementation resolves its track list.
package models
