// Package version exposes build metadata for cargo-ori.
//
// Version, Commit and BuildTime are injected via -ldflags at release time.
// Full feeds the `version` subcommand, UserAgent tags SDK download requests.
package version
