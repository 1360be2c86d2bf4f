// Package android contains the core domain types of the APK pipeline.
//
// Target enumerates the supported Android ABIs and maps each one to its Rust
// target triple and its device-reported ABI string. Device pairs a bridge id
// with its Target. Manifest is the synthesized application manifest handed to
// the container writer, rendered as AndroidManifest.xml by Render.
package android
