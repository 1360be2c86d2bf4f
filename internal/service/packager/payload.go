package packager

import (
	"bytes"
	"context"
	"crypto"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/ori/internal/logger"

	// Ensure SHA512 available for checksum calculation.
	_ "crypto/sha512"
)

const (
	// DexFilename is the name of the materialized payload.
	DexFilename = "classes.dex"

	// DefaultFileMode is used for the materialized payload.
	DefaultFileMode os.FileMode = 0o644

	// DefaultChecksumFunction verifies payload writes.
	DefaultChecksumFunction crypto.Hash = crypto.SHA512
)

var errHashUnavailable = errors.New("hash function unavailable")

//go:generate sh activity/build.sh

//go:embed assets/classes.dex
var classesDex []byte

// InstallPayload writes the embedded DEX payload into dir and returns its
// path. An identical existing file is left untouched.
func InstallPayload(ctx context.Context, dir string) (string, error) {
	target := filepath.Join(dir, DexFilename)

	checksum, err := checksumOf(classesDex)
	if err != nil {
		return "", err
	}

	if current, statErr := GetFileChecksum(target); statErr == nil && bytes.Equal(current, checksum) {
		logger.DebugKV(ctx, "DEX payload is up to date", "path", target)
		return target, nil
	}

	if err = os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd // Standard directory mode.
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	// go-update renames the current target aside, so it has to exist.
	if _, err = os.Stat(target); errors.Is(err, os.ErrNotExist) {
		var placeholder *os.File

		placeholder, err = os.Create(filepath.Clean(target))
		if err != nil {
			return "", fmt.Errorf("create %s: %w", target, err)
		}

		_ = placeholder.Close()
	}

	options := goupdate.Options{
		TargetPath: target,
		TargetMode: DefaultFileMode,
		Checksum:   checksum,
		Hash:       DefaultChecksumFunction,
	}

	if err = goupdate.Apply(bytes.NewReader(classesDex), options); err != nil {
		return "", fmt.Errorf("write %s: %w", target, err)
	}

	oldFileName := target + ".old"
	if _, err = os.Stat(oldFileName); err == nil {
		_ = os.Remove(oldFileName)
	}

	logger.DebugKV(ctx, "DEX payload written", "path", target)

	return target, nil
}

// Payload returns a copy of the embedded DEX payload.
func Payload() []byte {
	return bytes.Clone(classesDex)
}

// GetFileChecksum returns checksum bytes for a file using DefaultChecksumFunction.
func GetFileChecksum(path string) ([]byte, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	return checksumOf(contents)
}

func checksumOf(contents []byte) ([]byte, error) {
	if !DefaultChecksumFunction.Available() {
		return nil, fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	hasher := DefaultChecksumFunction.New()
	if _, err := hasher.Write(contents); err != nil {
		return nil, fmt.Errorf("calculate checksum: %w", err)
	}

	return hasher.Sum(nil), nil
}
