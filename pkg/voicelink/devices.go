package voicelink

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// AudioDevice describes one host audio device.
type AudioDevice struct {
	ID                int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	IsDefault         bool
	HostAPI           string
}

// DeviceManager enumerates and validates host audio devices. PortAudio is
// initialized once per manager and must be released with Cleanup.
type DeviceManager struct {
	mu      sync.RWMutex
	devices []AudioDevice
	logger  *Logger
}

func NewDeviceManager() *DeviceManager {
	return &DeviceManager{
		logger: GetGlobalLogger().WithComponent("DeviceManager"),
	}
}

func (dm *DeviceManager) Initialize() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if err := portaudio.Initialize(); err != nil {
		return WrapError(err, ErrCodeDeviceUnavailable)
	}
	if err := dm.refreshDevices(); err != nil {
		return WrapError(err, ErrCodeDeviceUnavailable)
	}

	dm.logger.WithField("device_count", len(dm.devices)).Info("Device manager initialized")
	return nil
}

func (dm *DeviceManager) Cleanup() {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if err := portaudio.Terminate(); err != nil {
		dm.logger.WithError(err).Warn("Failed to terminate PortAudio")
	}
}

func (dm *DeviceManager) refreshDevices() error {
	dm.devices = dm.devices[:0]

	defaultInput, err := portaudio.DefaultInputDevice()
	if err != nil {
		dm.logger.WithError(err).Warn("No default input device")
	}
	defaultOutput, err := portaudio.DefaultOutputDevice()
	if err != nil {
		dm.logger.WithError(err).Warn("No default output device")
	}

	all, err := portaudio.Devices()
	if err != nil {
		return err
	}

	for i, dev := range all {
		hostAPI := "Unknown"
		if dev.HostApi != nil {
			hostAPI = dev.HostApi.Name
		}
		dm.devices = append(dm.devices, AudioDevice{
			ID:                i,
			Name:              dev.Name,
			MaxInputChannels:  dev.MaxInputChannels,
			MaxOutputChannels: dev.MaxOutputChannels,
			DefaultSampleRate: dev.DefaultSampleRate,
			IsDefault:         dev == defaultInput || dev == defaultOutput,
			HostAPI:           hostAPI,
		})
	}
	return nil
}

// Devices returns a copy of the device list.
func (dm *DeviceManager) Devices() []AudioDevice {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	devices := make([]AudioDevice, len(dm.devices))
	copy(devices, dm.devices)
	return devices
}

// InputDevices returns devices with at least one input channel.
func (dm *DeviceManager) InputDevices() []AudioDevice {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	var in []AudioDevice
	for _, d := range dm.devices {
		if d.MaxInputChannels > 0 {
			in = append(in, d)
		}
	}
	return in
}

// OutputDevices returns devices with at least one output channel.
func (dm *DeviceManager) OutputDevices() []AudioDevice {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	var out []AudioDevice
	for _, d := range dm.devices {
		if d.MaxOutputChannels > 0 {
			out = append(out, d)
		}
	}
	return out
}

// DeviceByID returns the device with the given ID.
func (dm *DeviceManager) DeviceByID(id int) (*AudioDevice, error) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	for _, d := range dm.devices {
		if d.ID == id {
			return &d, nil
		}
	}
	return nil, NewDeviceError(fmt.Sprintf("device with ID %d not found", id))
}

// ValidateDevice checks that a device can satisfy the requested role.
func (dm *DeviceManager) ValidateDevice(id int, isInput bool, channels int) error {
	device, err := dm.DeviceByID(id)
	if err != nil {
		return err
	}
	if isInput && device.MaxInputChannels < channels {
		return NewDeviceError(fmt.Sprintf("device %q supports %d input channels, requested %d",
			device.Name, device.MaxInputChannels, channels))
	}
	if !isInput && device.MaxOutputChannels < channels {
		return NewDeviceError(fmt.Sprintf("device %q supports %d output channels, requested %d",
			device.Name, device.MaxOutputChannels, channels))
	}
	return nil
}
