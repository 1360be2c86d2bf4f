package cross

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
)

const (
	reasonCompilerArtifact = "compiler-artifact"
	reasonCompilerMessage  = "compiler-message"

	// crateTypeSharedLibrary is the crate type loaded by the Android activity.
	crateTypeSharedLibrary = "cdylib"
)

var (
	// ErrArtifactNotGenerated is returned when the build reported no artifact for the package.
	ErrArtifactNotGenerated = errors.New("artifact not generated")
	// ErrNoSharedLibrary is returned when the package artifact contains no cdylib output.
	ErrNoSharedLibrary = errors.New("no shared library produced, add crate-type = [\"cdylib\"] to [lib]")
)

// Artifact is a compiler-artifact message.
type Artifact struct {
	// PackageID identifies the package that produced the artifact.
	PackageID string `json:"package_id"`
	// Target describes the compiled target.
	Target ArtifactTarget `json:"target"`
	// Filenames are the produced files, one per crate type.
	Filenames []string `json:"filenames"`
}

// ArtifactTarget is the target section of a compiler-artifact message.
type ArtifactTarget struct {
	// Name is the target name.
	Name string `json:"name"`
	// Kind lists the target kinds.
	Kind []string `json:"kind"`
	// CrateTypes lists the crate types, aligned with Artifact.Filenames.
	CrateTypes []string `json:"crate_types"`
}

// message is the union of the build messages the scanner looks at.
type message struct {
	Reason    string         `json:"reason"`
	PackageID string         `json:"package_id"`
	Target    ArtifactTarget `json:"target"`
	Filenames []string       `json:"filenames"`
	Message   *diagnostic    `json:"message"`
}

// diagnostic is the payload of a compiler-message.
type diagnostic struct {
	Rendered string `json:"rendered"`
}

// SharedLibrary returns the filename of the cdylib output.
func (a *Artifact) SharedLibrary() (string, error) {
	index := -1

	for i, crateType := range a.Target.CrateTypes {
		if crateType == crateTypeSharedLibrary {
			index = i
			break
		}
	}

	if index < 0 {
		return "", fmt.Errorf("%w: %s", ErrNoSharedLibrary, a.PackageID)
	}

	for _, filename := range a.Filenames {
		if strings.HasSuffix(filename, ".so") {
			return filename, nil
		}
	}

	if index >= len(a.Filenames) {
		return "", fmt.Errorf("%w: %s", ErrNoSharedLibrary, a.PackageID)
	}

	return a.Filenames[index], nil
}

// ScanMessages consumes a build message stream until EOF. Diagnostics and
// plain text lines are written to echo as they are read. It returns the last
// artifact reported for packageID, which must contain a shared library.
func ScanMessages(r io.Reader, packageID string, echo io.Writer) (*Artifact, error) {
	if echo == nil {
		echo = io.Discard
	}

	var (
		reader    = bufio.NewReader(r)
		candidate *Artifact
	)

	for {
		line, readErr := reader.ReadBytes('\n')
		if len(line) > 0 {
			if artifact := classify(bytes.TrimRight(line, "\r\n"), packageID, echo); artifact != nil {
				candidate = artifact
			}
		}

		if errors.Is(readErr, io.EOF) {
			break
		}

		if readErr != nil {
			return nil, fmt.Errorf("read build output: %w", readErr)
		}
	}

	if candidate == nil {
		return nil, fmt.Errorf("%w: %s", ErrArtifactNotGenerated, packageID)
	}

	if _, err := candidate.SharedLibrary(); err != nil {
		return nil, err
	}

	return candidate, nil
}

// classify handles one line and returns an artifact when the line reports one
// for packageID.
func classify(line []byte, packageID string, echo io.Writer) *Artifact {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return nil
	}

	var msg message
	if trimmed[0] != '{' || json.Unmarshal(trimmed, &msg) != nil || msg.Reason == "" {
		_, _ = fmt.Fprintf(echo, "%s\n", line)
		return nil
	}

	switch msg.Reason {
	case reasonCompilerArtifact:
		if msg.PackageID != packageID {
			return nil
		}

		return &Artifact{
			PackageID: msg.PackageID,
			Target:    msg.Target,
			Filenames: msg.Filenames,
		}
	case reasonCompilerMessage:
		if msg.Message != nil && msg.Message.Rendered != "" {
			_, _ = io.WriteString(echo, msg.Message.Rendered)
		}
	}

	return nil
}
