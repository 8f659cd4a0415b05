package capture

// DataCallback receives raw 16-bit LE mono PCM from the microphone.
type DataCallback func(data []byte, frameCount uint32)

type DeviceConfig struct {
	SampleRate uint32
	Channels   uint32
}

// Device is one acquired microphone stream.
type Device interface {
	Start() error
	Stop()
	Close()
}

// Context creates capture devices; the production implementation wraps
// malgo, tests use FakeContext.
type Context interface {
	NewCapture(config DeviceConfig, callback DataCallback) (Device, error)
	Close()
}
