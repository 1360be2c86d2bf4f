// Package adb wraps the Android Debug Bridge.
//
// It enumerates attached devices, resolves the architecture of each one from
// its primary ABI, chooses the device to deploy to and installs packages.
package adb
