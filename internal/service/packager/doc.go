// Package packager assembles the APK of a build.
//
// Assembly is a fixed sequence against a container writer: create it with the
// manifest, add resources, add the DEX payload, add the native library and
// finish with a signer. The first failing step aborts the sequence.
//
// The DEX payload with the entry activity is embedded in the binary and
// materialized on disk with a checksum-verified atomic write. Its Java sources
// are under activity/; go generate rebuilds the payload with javac and d8.
package packager
