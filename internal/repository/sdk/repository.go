package sdk

import (
	"encoding/xml"
	"errors"
	"fmt"
	"runtime"
	"strconv"
)

const (
	// RepositoryIndex is the package index file inside the repository.
	RepositoryIndex = "repository2-3.xml"

	// platformPackagePrefix prefixes platform package paths in the index.
	platformPackagePrefix = "platforms;android-"
)

var (
	// ErrUnsupportedHost is returned on an operating system the SDK is not published for.
	ErrUnsupportedHost = errors.New("host operating system is not supported by the android sdk")
	// ErrPackageNotFound is returned when the index or archive lacks the platform.
	ErrPackageNotFound = errors.New("sdk package not found")
)

// index is the subset of the repository index used to locate platform archives.
type index struct {
	RemotePackages []remotePackage `xml:"remotePackage"`
}

type remotePackage struct {
	Path     string      `xml:"path,attr"`
	Archives archiveList `xml:"archives"`
}

type archiveList struct {
	Archive []archive `xml:"archive"`
}

type archive struct {
	HostOS   string          `xml:"host-os"`
	Complete archiveComplete `xml:"complete"`
}

type archiveComplete struct {
	Size     int64  `xml:"size"`
	Checksum string `xml:"checksum"`
	URL      string `xml:"url"`
}

// HostOS returns the repository name of the operating system goos.
func HostOS(goos string) (string, error) {
	switch goos {
	case "linux":
		return "linux", nil
	case "darwin":
		return "macosx", nil
	case "windows":
		return "windows", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedHost, goos)
	}
}

// currentHostOS is replaced in tests.
//
//nolint:gochecknoglobals // Test seam for the host operating system.
var currentHostOS = func() (string, error) {
	return HostOS(runtime.GOOS)
}

// PlatformPackage returns the index path of the platform package for an API level.
func PlatformPackage(apiLevel int) string {
	return platformPackagePrefix + strconv.Itoa(apiLevel)
}

// parseIndex decodes the repository index.
func parseIndex(data []byte) (*index, error) {
	var result index
	if err := xml.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode %s: %w", RepositoryIndex, err)
	}

	return &result, nil
}

// findArchive returns the archive of the package for the host.
func (i *index) findArchive(packagePath, hostOS string) (*archive, error) {
	for _, pkg := range i.RemotePackages {
		if pkg.Path != packagePath {
			continue
		}

		for idx := range pkg.Archives.Archive {
			candidate := &pkg.Archives.Archive[idx]
			if candidate.HostOS == "" || candidate.HostOS == hostOS {
				return candidate, nil
			}
		}

		return nil, fmt.Errorf("%w: %s has no archive for %s", ErrPackageNotFound, packagePath, hostOS)
	}

	return nil, fmt.Errorf("%w: %s", ErrPackageNotFound, packagePath)
}
