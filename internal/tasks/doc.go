// Package tasks runs long playlist operations against the Web API with progress reporting.
//
// # Bulk Export
//
// [Exporter.BulkExport] fetches the tracks of each playlist at a fixed request rate and hands
// them to a pool of workers that write files through the formatter package. A manifest
// (export_manifest.json) summarizing every playlist is written once all workers finish.
//
// Every API call goes through the same token provider, so a token that expires during a long
// export is refreshed once and shared by all workers.
//
// # Progress Reporting
//
// Updates are sent on an optional channel with a non-blocking send, so a slow or absent reader
// never stalls the export.
package tasks
