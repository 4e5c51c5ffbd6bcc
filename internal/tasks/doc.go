// Package tasks runs long playlist operations with real-time progress reporting.
//
// # Bulk Export
//
// [Exporter.BulkExport] writes every requested playlist to disk through a bounded worker pool:
//
//  1. A producer loads each playlist's content through a [ContentSource], throttled by a rate limiter
//  2. Workers render the content with the formatter package (one file plus a metadata JSON per playlist)
//  3. Results are collected into a [BulkExportResult] and summarised in export_manifest.json
//
// Playlists that cannot be loaded or written are recorded as failures; the remaining exports continue.
//
// # Progress Reporting
//
// Operations send [ProgressUpdate] values on an optional channel.
// Updates use select with default to prevent blocking, so a slow consumer only misses messages.
package tasks
