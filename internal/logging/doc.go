// Package logging builds the slog loggers used across mosaic and defines the
// standardized attribute keys components attach to their records.
//
// Console and JSON formats are supported; daemon logs are mirrored to a file
// in the configured log directory. Use NewComponentLogger to tag a logger for
// a subsystem and the Field* constants for cross-component keys so log
// queries stay consistent.
package logging
