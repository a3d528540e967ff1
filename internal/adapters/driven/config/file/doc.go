// Package file provides the TOML-backed configuration store and the
// change watcher that hot-reloads quality tunables.
package file
