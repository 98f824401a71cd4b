// Command mosaic is the CLI for the mosaic photogrammetry orchestrator. It
// runs the daemon in the foreground and drives a running daemon over its
// local HTTP API.
package main
