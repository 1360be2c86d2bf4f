// Package common holds helpers shared by several services.
//
// It wraps external command execution behind a small Runner interface, probes
// whether required tools are installed, and inspects the host process table.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
