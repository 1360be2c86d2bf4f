// Package cross builds the shared library of a Cargo package for an Android
// target with the cross toolchain.
//
// The compiler runs with --message-format=json. Its standard output is read
// line by line while the build runs: diagnostics are echoed as they arrive and
// the last compiler-artifact message of the requested package is kept.
package cross
