// Package repositories implements SQLite persistence for the token record.
//
// The record is a handful of string keys in the kv table created by the embedded
// migrations in [shared]. Multi-key writes and deletes run inside one transaction
// so readers never observe a partially written record.
//
// Key Implementations:
//   - [KVRepository] : string key-value rows with upsert and batch delete
package repositories
