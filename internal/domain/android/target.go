package android

import (
	"errors"
	"fmt"
	"strings"
)

// Target is one of the instruction-set/ABI combinations an APK can ship.
type Target int

const (
	// TargetUnknown is the zero value and never a valid target.
	TargetUnknown Target = iota
	// TargetArm64 is 64-bit ARM (arm64-v8a).
	TargetArm64
	// TargetArmV7 is 32-bit ARM with hardware float (armeabi-v7a).
	TargetArmV7
	// TargetX86 is 32-bit Intel.
	TargetX86
	// TargetX86_64 is 64-bit Intel.
	TargetX86_64 //nolint:revive,stylecheck // Mirrors the ABI name.
)

var (
	// ErrUnknownTriple is returned for a compiler triple outside the supported set.
	ErrUnknownTriple = errors.New("target triple is not supported for android")
	// ErrUnknownABI is returned for a device ABI outside the supported set.
	ErrUnknownABI = errors.New("unknown abi")
)

// targetNames holds the triple and ABI of every supported target.
//
//nolint:gochecknoglobals // Read-only lookup table.
var targetNames = map[Target]struct {
	triple string
	abi    string
}{
	TargetArm64:  {triple: "aarch64-linux-android", abi: "arm64-v8a"},
	TargetArmV7:  {triple: "armv7-linux-androideabi", abi: "armeabi-v7a"},
	TargetX86:    {triple: "i686-linux-android", abi: "x86"},
	TargetX86_64: {triple: "x86_64-linux-android", abi: "x86_64"},
}

// Targets returns every supported target in a stable order.
func Targets() []Target {
	return []Target{TargetArm64, TargetArmV7, TargetX86, TargetX86_64}
}

// Triples returns the supported compiler triples, used in help and error text.
func Triples() []string {
	all := Targets()
	out := make([]string, 0, len(all))

	for _, target := range all {
		out = append(out, target.Triple())
	}

	return out
}

// IsValid reports whether t is one of the supported targets.
func (t Target) IsValid() bool {
	_, ok := targetNames[t]
	return ok
}

// Triple returns the compiler target triple, or "" for an invalid target.
func (t Target) Triple() string {
	return targetNames[t].triple
}

// ABI returns the Android ABI directory name, or "" for an invalid target.
func (t Target) ABI() string {
	return targetNames[t].abi
}

// String implements fmt.Stringer.
func (t Target) String() string {
	if !t.IsValid() {
		return fmt.Sprintf("Target(%d)", int(t))
	}

	return t.ABI()
}

// ParseTriple maps a compiler triple to its Target. Unknown triples are errors.
func ParseTriple(triple string) (Target, error) {
	for target, names := range targetNames {
		if names.triple == triple {
			return target, nil
		}
	}

	return TargetUnknown, fmt.Errorf(
		"%w: %q (supported: %s)",
		ErrUnknownTriple, triple, strings.Join(Triples(), ", "),
	)
}

// ParseABI maps a device-reported ABI to its Target. Unknown ABIs are errors.
func ParseABI(abi string) (Target, error) {
	for target, names := range targetNames {
		if names.abi == abi {
			return target, nil
		}
	}

	return TargetUnknown, fmt.Errorf("%w %q", ErrUnknownABI, abi)
}
