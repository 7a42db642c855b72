// Package store persists the execution audit log in SQLite.
//
// Only dispatch outcomes are stored (tool, owning service, outcome kind,
// duration, ref id). Service and tool registrations are deliberately not
// persisted; the registry is reconstructed from the configured adapters at
// startup.
package store
