// Package driving provides interfaces consumed by external actors
// (primary/inbound ports): the HTTP API, the MCP server and the CLI.
package driving
