// Package audio discovers Pulse input sources and picks the one speech capture listens on.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// ErrNoDevices indicates the Pulse server reported no input sources.
var ErrNoDevices = errors.New("no audio input devices found")

// Device describes one Pulse input source.
type Device struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Usable reports whether the device can capture speech right now.
func (d Device) Usable() bool {
	return d.Available && !d.Muted
}

// Reason explains why a device is not usable.
func (d Device) Reason() string {
	switch {
	case d.Muted:
		return "muted"
	case !d.Available:
		return "unavailable"
	default:
		return "ok"
	}
}

// Preference is the configured input choice. Empty or "default" means the server default.
type Preference struct {
	Input    string
	Fallback string
}

// Selection is the resolved capture source plus an optional fallback warning.
type Selection struct {
	Device   Device
	Warning  string
	Fallback bool
}

// Lister enumerates input sources.
type Lister func(context.Context) ([]Device, error)

// ListDevices returns Pulse input sources with default, availability and mute metadata.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("hark"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}

	var infos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &infos); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	devices := make([]Device, 0, len(infos))
	for _, info := range infos {
		if info == nil {
			continue
		}
		devices = append(devices, Device{
			ID:          info.SourceName,
			Description: info.Device,
			State:       sourceStateString(info.State),
			Available:   sourceAvailable(info),
			Muted:       info.Mute,
			Default:     info.SourceName == defaultSource.ID(),
		})
	}
	return devices, nil
}

// SelectDevice lists devices with list and applies pref. A nil list uses ListDevices.
func SelectDevice(ctx context.Context, list Lister, pref Preference) (Selection, error) {
	if list == nil {
		list = ListDevices
	}
	devices, err := list(ctx)
	if err != nil {
		return Selection{}, err
	}
	return Select(devices, pref)
}

// Select applies pref to devices: the preferred input when usable, else the fallback (or
// the default source) with a warning.
func Select(devices []Device, pref Preference) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, ErrNoDevices
	}

	primary, err := find(devices, pref.Input, "audio.input")
	if err != nil {
		return Selection{}, err
	}
	if primary.Usable() {
		return Selection{Device: primary}, nil
	}

	fallback, err := find(devices, pref.Fallback, "audio.fallback")
	if err != nil {
		return Selection{}, fmt.Errorf("input %q is %s: %w", primary.ID, primary.Reason(), err)
	}
	if !fallback.Usable() {
		return Selection{}, fmt.Errorf("input %q is %s and fallback %q is %s", primary.ID, primary.Reason(), fallback.ID, fallback.Reason())
	}

	return Selection{
		Device:   fallback,
		Warning:  fmt.Sprintf("audio.input %q is %s; falling back to %q", primary.ID, primary.Reason(), fallback.ID),
		Fallback: true,
	}, nil
}

// find resolves one preference term against devices.
func find(devices []Device, term string, field string) (Device, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" || term == "default" {
		for _, d := range devices {
			if d.Default {
				return d, nil
			}
		}
		return Device{}, errors.New("default audio source is unavailable")
	}

	for _, d := range devices {
		if deviceMatches(d, term) {
			return d, nil
		}
	}
	return Device{}, fmt.Errorf("%s %q did not match any device", field, term)
}

// deviceMatches reports whether a lowercase search term matches a device id or description.
func deviceMatches(device Device, term string) bool {
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(device.ID), term) ||
		strings.Contains(strings.ToLower(device.Description), term)
}

// sourceStateString maps Pulse source state constants to human-readable values.
func sourceStateString(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

// sourceAvailable maps the active port availability to a boolean.
func sourceAvailable(source *pulseproto.GetSourceInfoReply) bool {
	if source == nil {
		return false
	}
	for _, port := range source.Ports {
		if port.Name == source.ActivePortName {
			// PulseAudio values: unknown=0, no=1, yes=2.
			return port.Available != 1
		}
	}
	return true
}
