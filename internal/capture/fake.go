package capture

import (
	"errors"
	"sync"
)

// FakeContext is an in-memory Context for tests; frames are pushed by hand
// through FakeDevice.Feed.
type FakeContext struct {
	FailAcquire bool

	mu      sync.Mutex
	devices []*FakeDevice
}

func NewFakeContext() *FakeContext {
	return &FakeContext{}
}

func (f *FakeContext) NewCapture(config DeviceConfig, callback DataCallback) (Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailAcquire {
		return nil, errors.New("microphone unavailable")
	}
	dev := &FakeDevice{callback: callback}
	f.devices = append(f.devices, dev)
	return dev, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) Device(i int) *FakeDevice {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i < 0 || i >= len(f.devices) {
		return nil
	}
	return f.devices[i]
}

func (f *FakeContext) DeviceCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.devices)
}

type FakeDevice struct {
	callback DataCallback

	mu      sync.Mutex
	started bool
	stopped bool
	closed  bool
}

func (d *FakeDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.started = true
	d.stopped = false
	return nil
}

func (d *FakeDevice) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
}

func (d *FakeDevice) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
}

func (d *FakeDevice) Stopped() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopped
}

func (d *FakeDevice) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Feed delivers PCM bytes as if the hardware produced them.
func (d *FakeDevice) Feed(data []byte) {
	d.mu.Lock()
	if !d.started || d.stopped {
		d.mu.Unlock()
		return
	}
	cb := d.callback
	d.mu.Unlock()
	cb(data, uint32(len(data)/2))
}
