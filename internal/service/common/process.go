//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"os"

	"github.com/mitchellh/go-ps"
)

// IsProcessRunning reports whether another process with the given executable
// name exists in the process table.
func IsProcessRunning(executable string) (bool, error) {
	processList, err := ps.Processes()
	if err != nil {
		return false, err
	}

	thisProcessID := os.Getpid()
	name := ExecutableName(executable)

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if process.Executable() == name {
			return true, nil
		}
	}

	return false, nil
}
