// Package apk runs the build and install workflows.
//
// Build resolves the project and its metadata, synthesizes the manifest,
// compiles the shared library for the target, ensures the platform jar and
// assembles a signed APK next to the library. Install picks a device, builds
// for its architecture unless a target was given, and installs the package.
package apk
