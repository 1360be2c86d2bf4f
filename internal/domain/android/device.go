package android

// Device is an attached device reported by the bridge.
type Device struct {
	// ID is the bridge-assigned serial.
	ID string
	// Target is the architecture resolved from the device ABI property.
	Target Target
}
