// Package memory provides in-memory implementations of the metadata
// store ports for tests and ephemeral runs.
package memory
