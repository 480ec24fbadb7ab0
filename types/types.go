package types

import (
	"fmt"
	"strings"

	"github.com/alecthomas/repr"
)

// Unknown is the placeholder used for every device or app attribute that could not be read.
const Unknown = "unknown"

// region Pair

type Pair[K interface{}, V interface{}] struct {
	First  K
	Second V
}

// endregion Pair

// region DeviceStatus

type DeviceStatus string

const (
	StatusDevice       DeviceStatus = "device"
	StatusAuthorized   DeviceStatus = "authorized"
	StatusUnauthorized DeviceStatus = "unauthorized"
	StatusOffline      DeviceStatus = "offline"
	StatusUnknown      DeviceStatus = Unknown
)

func ParseDeviceStatus(s string) DeviceStatus {
	switch DeviceStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusDevice:
		return StatusDevice
	case StatusAuthorized:
		return StatusAuthorized
	case StatusUnauthorized:
		return StatusUnauthorized
	case StatusOffline:
		return StatusOffline
	default:
		return StatusUnknown
	}
}

// IsConnected reports whether a device in this state can accept commands.
func (s DeviceStatus) IsConnected() bool {
	return s == StatusDevice || s == StatusAuthorized
}

// endregion DeviceStatus

// region Device

// Device is a snapshot of a connected device as reported by a single enumeration.
// Detail fields stay Unknown until they are loaded explicitly.
type Device struct {
	ID             string
	Status         DeviceStatus
	Model          string
	Brand          string
	Manufacturer   string
	AndroidVersion string
	SdkVersion     string
	Resolution     string
	Density        string
	TotalRAM       string
	Storage        string
	CPUArch        string
	Product        string
	TransportID    string
}

func NewDevice(id string, status DeviceStatus) Device {
	return Device{
		ID:             id,
		Status:         status,
		Model:          Unknown,
		Brand:          Unknown,
		Manufacturer:   Unknown,
		AndroidVersion: Unknown,
		SdkVersion:     Unknown,
		Resolution:     Unknown,
		Density:        Unknown,
		TotalRAM:       Unknown,
		Storage:        Unknown,
		CPUArch:        Unknown,
	}
}

// DisplayName returns "Brand Model", skipping unknown parts. Falls back to the id.
func (d Device) DisplayName() string {
	var parts []string
	if d.Brand != "" && d.Brand != Unknown {
		parts = append(parts, d.Brand)
	}
	if d.Model != "" && d.Model != Unknown {
		parts = append(parts, d.Model)
	}
	if len(parts) == 0 {
		return d.ID
	}
	return strings.Join(parts, " ")
}

func (d Device) String() string {
	return repr.String(d)
}

// endregion Device

// region PackageFilter

type PackageFilter int

const (
	FilterAll PackageFilter = iota
	FilterUser
	FilterSystem
)

func (f PackageFilter) String() string {
	switch f {
	case FilterUser:
		return "user"
	case FilterSystem:
		return "system"
	default:
		return "all"
	}
}

func ParsePackageFilter(s string) (PackageFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return FilterAll, nil
	case "user", "3", "third-party":
		return FilterUser, nil
	case "system":
		return FilterSystem, nil
	}
	return FilterAll, fmt.Errorf("invalid package filter: %q", s)
}

// endregion PackageFilter

// region InstalledApp

type InstalledApp struct {
	PackageName string
	DisplayName string
	Version     string
	ApkPath     string
	IsSystem    bool
}

func (a InstalledApp) String() string {
	return repr.String(a)
}

// endregion InstalledApp

// region Size

type Size struct {
	Width  uint
	Height uint
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// endregion Size
