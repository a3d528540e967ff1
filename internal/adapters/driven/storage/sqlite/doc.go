// Package sqlite provides SQLite-backed implementations of the
// metadata store ports. A single database file holds chunks, quality
// scores, feedback events, conflicts and scheduler state; schema
// changes ship as embedded migrations.
package sqlite
