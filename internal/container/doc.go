// Package container writes signed APK files with the Android SDK build tools.
//
// A Writer is created with the manifest, accumulates resources, the DEX
// payload and native libraries, and produces the final package in Finish:
// aapt2 links the manifest and resources, the queued entries are added to the
// archive, zipalign aligns it and apksigner signs it with a Signer.
package container
