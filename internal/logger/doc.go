// Package logger wraps zap to provide:
//   - a global sugared logger writing colored console lines to stderr,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and configuration for the CLI flags,
//   - short helpers (InfoKV, DebugKV, Warnf, ...).
//
// Stdout is left to the build output (compiler diagnostics, final paths), so
// every workflow step takes a context and logs through the logger stored in it.
package logger
