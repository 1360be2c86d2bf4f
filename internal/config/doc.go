// Package config holds cargo-ori tool settings: where the Android SDK lives,
// which binaries to call for cargo, cross and adb, where platform packages are
// downloaded from and how verbose logging is.
//
// Settings come from an optional ori.yaml (working directory or the XDG config
// directory), environment variables prefixed with ORI_ and built-in defaults.
package config
