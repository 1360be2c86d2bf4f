// Package sdk keeps a local copy of the Android platform jar.
//
// The jar is cached under <target-dir>/apk/platforms/android-<level>/android.jar.
// When it is missing, the platform package is looked up in the SDK repository
// index, its archive is downloaded and verified, and only android.jar is
// extracted from it. An existing jar is never downloaded again.
package sdk
