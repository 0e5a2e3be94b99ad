// Package integration provides integration tests for the ToolHive transform registry.
// They run the complete server against fake transform engines and local configuration
// files, and check what the HTTP API serves across refreshes and engine outages.
package integration
