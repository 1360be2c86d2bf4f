package container

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	goversion "github.com/hashicorp/go-version"

	"github.com/oshokin/ori/internal/service/common"
)

// ErrBuildToolsNotFound is returned when the SDK has no usable build tools.
var ErrBuildToolsNotFound = errors.New("android sdk build-tools not found")

const (
	toolAAPT2     = "aapt2"
	toolZipalign  = "zipalign"
	toolAPKSigner = "apksigner"
)

// BuildTools is one installed build-tools revision.
type BuildTools struct {
	// Dir is the revision directory.
	Dir string
	// Version is the parsed revision.
	Version *goversion.Version
}

// FindBuildTools returns the newest build-tools revision under sdkRoot that
// provides every tool the writer needs.
func FindBuildTools(sdkRoot string) (*BuildTools, error) {
	root := filepath.Join(sdkRoot, "build-tools")

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildToolsNotFound, err)
	}

	var newest *BuildTools

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		revision, parseErr := goversion.NewVersion(entry.Name())
		if parseErr != nil {
			continue
		}

		candidate := &BuildTools{
			Dir:     filepath.Join(root, entry.Name()),
			Version: revision,
		}

		if !candidate.complete() {
			continue
		}

		if newest == nil || revision.GreaterThan(newest.Version) {
			newest = candidate
		}
	}

	if newest == nil {
		return nil, fmt.Errorf("%w: no complete revision in %s", ErrBuildToolsNotFound, root)
	}

	return newest, nil
}

// Tool returns the path of a build tool in this revision.
func (b *BuildTools) Tool(name string) string {
	if name == toolAPKSigner && runtime.GOOS == "windows" {
		return filepath.Join(b.Dir, name+".bat")
	}

	return filepath.Join(b.Dir, common.ExecutableName(name))
}

func (b *BuildTools) complete() bool {
	for _, name := range []string{toolAAPT2, toolZipalign, toolAPKSigner} {
		if _, err := os.Stat(b.Tool(name)); err != nil {
			return false
		}
	}

	return true
}
