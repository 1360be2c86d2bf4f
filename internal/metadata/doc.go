// Package metadata resolves project identity and tool configuration.
//
// Project identity (id, name, version, paths) comes from `cargo metadata`.
// Tool configuration lives in two optional Cargo.toml tables:
// [package.metadata.ori] (General) and [package.metadata.apk] (Package).
// Each table is validated against an embedded JSON schema that rejects unknown
// keys, then decoded over default values field by field.
package metadata
