package winmix

// DeviceInfo describes an audio device known to the platform
type DeviceInfo struct {
	Name        string // Friendly name of the device
	Type        string // "Output" or "Input"
	Description string // Device description (optional, may be empty)
}

// sessionFinder represents an entity that can find all current audio sessions
type sessionFinder interface {
	GetAllSessions() ([]*Session, error)
	GetAllDevices() ([]DeviceInfo, error)

	Release() error
}
