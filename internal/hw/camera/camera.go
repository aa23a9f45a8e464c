// Package camera talks to a camera over its wired remote connector.
//
// The connector carries three lines besides ground: a cable-presence line
// that is shorted to ground by the plug, a focus line and a shutter line.
// The camera pulls its focus line HIGH while powered, so the same line
// doubles as camera presence sense. Idle trigger lines are pulled-up
// inputs; a trigger pulls its line LOW for a fixed duration.
package camera

// Status is the aggregate state of the camera link.
type Status int

const (
	Disconnected   Status = iota // no cable
	CableOnly                    // cable seated, camera off or absent
	FullyConnected               // cable seated and camera powered
)

func (s Status) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case CableOnly:
		return "Cable Connected"
	case FullyConnected:
		return "Fully Connected"
	default:
		return "Unknown"
	}
}

// StatusOf derives the status from the two presence flags.
func StatusOf(cableConnected, cameraDetected bool) Status {
	switch {
	case !cableConnected:
		return Disconnected
	case !cameraDetected:
		return CableOnly
	default:
		return FullyConnected
	}
}

// StatusSource is anything that reports the current link status.
type StatusSource interface {
	Status() Status
}
