// Package logging configures structured logging for Regula.
//
// It wraps log/slog with level and format parsing so the rest of the
// codebase can depend on *slog.Logger directly. Components receive a
// child logger tagged with a "component" attribute.
package logging
