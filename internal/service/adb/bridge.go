package adb

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/oshokin/ori/internal/domain/android"
	"github.com/oshokin/ori/internal/logger"
	"github.com/oshokin/ori/internal/service/common"
)

var (
	// ErrNoDevice is returned when no device is attached.
	ErrNoDevice = errors.New("no device connected")
	// ErrAmbiguousDevice is returned when several devices are attached and none was chosen.
	ErrAmbiguousDevice = errors.New("more than one device connected")
	// ErrDeviceNotFound is returned when the requested device id is not attached.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrInstallFailed is returned when the bridge fails to install a package.
	ErrInstallFailed = errors.New("install failed")
)

const (
	// DefaultExecutable is the bridge executable looked up on PATH.
	DefaultExecutable = "adb"

	// abiProperty holds the primary ABI of a device.
	abiProperty = "ro.product.cpu.abi"

	// StateReady is the state column of a device that accepts commands.
	StateReady = "device"
)

// Entry is one row of `adb devices` output.
type Entry struct {
	// ID is the device serial.
	ID string
	// State is the connection state, e.g. "device", "offline" or "unauthorized".
	State string
}

// Bridge talks to devices through the adb executable.
type Bridge struct {
	// runner executes adb.
	runner common.Runner
	// executable is the adb path or name.
	executable string
}

// New returns a bridge that runs the given adb executable.
func New(runner common.Runner, executable string) *Bridge {
	if executable == "" {
		executable = DefaultExecutable
	}

	return &Bridge{
		runner:     runner,
		executable: executable,
	}
}

// Ensure checks that adb is installed and that its server is up.
func (b *Bridge) Ensure(ctx context.Context) error {
	if err := common.EnsureTool(ctx, b.runner, b.executable, "version"); err != nil {
		return err
	}

	processName := strings.TrimSuffix(filepath.Base(b.executable), ".exe")

	running, err := common.IsProcessRunning(processName)
	if err != nil {
		logger.DebugKV(ctx, "Unable to inspect process table", "error", err)
		return nil
	}

	if running {
		return nil
	}

	logger.Info(ctx, "Starting adb server")

	if _, err = b.runner.Output(ctx, b.executable, "start-server"); err != nil {
		return fmt.Errorf("start adb server: %w", err)
	}

	return nil
}

// ListDevices enumerates attached devices with their architectures.
func (b *Bridge) ListDevices(ctx context.Context) ([]*android.Device, error) {
	output, err := b.runner.Output(ctx, b.executable, "devices")
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	entries := ParseDevices(output)
	devices := make([]*android.Device, 0, len(entries))

	for _, entry := range entries {
		if entry.State != StateReady {
			// getprop fails on such devices, and they cannot be installed to.
			logger.WarnKV(ctx, "Skipping device that is not ready", "device", entry.ID, "state", entry.State)
			continue
		}

		var target android.Target

		target, err = b.deviceTarget(ctx, entry.ID)
		if err != nil {
			return nil, err
		}

		logger.DebugKV(ctx, "Found device", "device", entry.ID, "abi", target.ABI())

		devices = append(devices, &android.Device{
			ID:     entry.ID,
			Target: target,
		})
	}

	return devices, nil
}

// Install installs the package on the device.
func (b *Bridge) Install(ctx context.Context, deviceID, apkPath string) error {
	if err := b.runner.Run(ctx, b.executable, "-s", deviceID, "install", apkPath); err != nil {
		return fmt.Errorf("%w: %s on %s: %w", ErrInstallFailed, apkPath, deviceID, err)
	}

	return nil
}

func (b *Bridge) deviceTarget(ctx context.Context, id string) (android.Target, error) {
	output, err := b.runner.Output(ctx, b.executable, "-s", id, "shell", "getprop", abiProperty)
	if err != nil {
		return android.TargetUnknown, fmt.Errorf("query abi of %s: %w", id, err)
	}

	target, err := android.ParseABI(strings.TrimSpace(string(output)))
	if err != nil {
		return android.TargetUnknown, fmt.Errorf("device %s: %w", id, err)
	}

	return target, nil
}

// ParseDevices extracts device rows from `adb devices` output. The header
// and daemon status lines are skipped.
func ParseDevices(output []byte) []Entry {
	var (
		entries    []Entry
		headerSeen bool
	)

	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "*"):
			continue
		case !headerSeen:
			// First meaningful line is the header, whatever its wording.
			headerSeen = true
			continue
		}

		fields := strings.Fields(line)

		entry := Entry{ID: fields[0]}
		if len(fields) > 1 {
			entry.State = fields[1]
		}

		entries = append(entries, entry)
	}

	return entries
}

// SelectDevice picks the device to deploy to. A non-empty id must match an
// attached device; otherwise exactly one device must be attached.
func SelectDevice(devices []*android.Device, id string) (*android.Device, error) {
	if id != "" {
		for _, device := range devices {
			if device.ID == id {
				return device, nil
			}
		}

		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}

	switch len(devices) {
	case 0:
		return nil, ErrNoDevice
	case 1:
		return devices[0], nil
	default:
		return nil, fmt.Errorf("%w: found %d devices, choose one with --device", ErrAmbiguousDevice, len(devices))
	}
}
