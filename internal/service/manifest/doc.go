// Package manifest synthesizes the application manifest of a project.
//
// Every manifest field is resolved by its own function with a fixed precedence:
// package metadata, then general metadata, then a value computed from the
// project identity. Synthesis is pure and never fails.
package manifest
