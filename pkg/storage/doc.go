// Package storage is the persistence adapter for override state: a
// namespaced JSON key/value layer over a pluggable Backend.
//
// Responsibilities:
//   - Backend implementations only move bytes for a single key.
//   - Adapter namespaces keys, encodes/decodes JSON and absorbs failures:
//     reads of missing or corrupt entries report "no prior state", failed
//     writes are logged and otherwise ignored so in-memory state stays
//     authoritative for the session.
//
// Data flow:
//
//	Domain/Orchestrator -> Adapter.Write(key, value) -> Backend.Put(prefix+key, json)
//
// Backends live in this package (MemoryBackend) and in the sqlite and postgres
// subpackages.
package storage
