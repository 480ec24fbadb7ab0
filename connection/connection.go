package connection

import (
	"context"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/essentialkaos/ek/v12/env"
	"github.com/rs/zerolog"

	"github.com/sephiroth74/go_adb_apps/transport"
	"github.com/sephiroth74/go_adb_apps/types"
)

// AvailabilityPolicy decides how IsDeviceAvailable combines its two probes.
type AvailabilityPolicy int

const (
	// RequireBoth needs `get-state` to report "device" and the id to be listed by `devices -l`.
	RequireBoth AvailabilityPolicy = iota
	// PrimaryOrFallback accepts a successful `get-state`, or a `devices -l` match when it fails.
	PrimaryOrFallback
)

func (p AvailabilityPolicy) String() string {
	if p == PrimaryOrFallback {
		return "primary-or-fallback"
	}
	return "require-both"
}

var versionRegexp = regexp.MustCompile(`.*\s([\w]+\.[\w]+\.[\w]+)`)

type Connection struct {
	adbPath atomic.Value
	Runner  transport.Runner
	Policy  AvailabilityPolicy
	Log     zerolog.Logger
}

// NewConnection returns a Connection using path, or the adb found in PATH when path is empty.
func NewConnection(path string, runner transport.Runner, log zerolog.Logger) *Connection {
	if path == "" {
		path = env.Which("adb")
	}
	if runner == nil {
		runner = transport.NewExecRunner(log)
	}
	conn := &Connection{Runner: runner, Policy: RequireBoth, Log: log}
	conn.SetADBPath(path)
	return conn
}

func (c *Connection) ADBPath() string {
	path, _ := c.adbPath.Load().(string)
	return path
}

// SetADBPath changes the executable used by commands started after the call.
func (c *Connection) SetADBPath(path string) {
	c.adbPath.Store(path)
}

func (c *Connection) NewProcessBuilder() *transport.ProcessBuilder {
	return transport.NewProcessBuilder(c.Runner).WithPath(c.ADBPath())
}

func (c *Connection) Version(ctx context.Context) (string, error) {
	result, err := c.NewProcessBuilder().WithCommand("version").WithTimeout(transport.StatusTimeout).Invoke(ctx)
	if err := transport.Check(result, err, "adb version"); err != nil {
		return "", err
	}

	lines := result.OutputLines()
	if len(lines) > 0 {
		m := versionRegexp.FindStringSubmatch(lines[0])
		if len(m) == 2 {
			return m[1], nil
		}
	}
	return types.Unknown, nil
}

func (c *Connection) GetState(ctx context.Context, serial string) (types.DeviceStatus, error) {
	result, err := c.NewProcessBuilder().
		WithSerial(serial).
		WithCommand("get-state").
		WithTimeout(transport.StatusTimeout).
		Invoke(ctx)
	if err := transport.Check(result, err, "get-state"); err != nil {
		return types.StatusUnknown, err
	}
	return types.ParseDeviceStatus(result.Output()), nil
}

// Devices runs `devices -l` and returns the connected devices without querying their brand.
func (c *Connection) Devices(ctx context.Context) ([]types.Device, error) {
	result, err := c.NewProcessBuilder().WithCommand("devices").WithArgs("-l").Invoke(ctx)
	if err := transport.Check(result, err, "devices -l"); err != nil {
		return nil, err
	}
	return ParseDevices(result.Output()), nil
}

// ListDevices enumerates the connected devices and fills in their brand.
// A failed brand lookup leaves the brand unknown.
func (c *Connection) ListDevices(ctx context.Context) ([]types.Device, error) {
	devices, err := c.Devices(ctx)
	if err != nil {
		return nil, err
	}

	for i := range devices {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		devices[i].Brand = c.brand(ctx, devices[i].ID)
	}
	return devices, nil
}

func (c *Connection) brand(ctx context.Context, serial string) string {
	result, err := c.NewProcessBuilder().
		WithSerial(serial).
		WithCommand("shell").
		WithArgs("getprop", "ro.product.brand").
		WithTimeout(transport.StatusTimeout).
		Invoke(ctx)
	if err != nil || !result.IsOk() || result.Output() == "" {
		c.Log.Debug().Str("device", serial).Msgf("brand lookup failed: %v", transport.Check(result, err, "getprop"))
		return types.Unknown
	}
	return result.Output()
}

// IsDeviceAvailable applies the connection policy. Errors count as "not available".
func (c *Connection) IsDeviceAvailable(ctx context.Context, serial string) bool {
	if serial == "" {
		return false
	}

	state, err := c.GetState(ctx, serial)
	primary := err == nil && state == types.StatusDevice

	if c.Policy == PrimaryOrFallback && primary {
		return true
	}
	if c.Policy == RequireBoth && !primary {
		return false
	}

	devices, err := c.Devices(ctx)
	if err != nil {
		return false
	}
	for _, d := range devices {
		if d.ID == serial && d.Status == types.StatusDevice {
			return true
		}
	}
	return false
}

// RequireDevice returns a KindDeviceUnavailable error when serial fails the availability check.
func (c *Connection) RequireDevice(ctx context.Context, serial string) error {
	if !c.IsDeviceAvailable(ctx, serial) {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.Log.Warn().Str("device", serial).Msg("device not available")
		return types.DeviceUnavailable(serial)
	}
	return nil
}

func (c *Connection) Pull(ctx context.Context, serial string, src string, dst string) (transport.Result, error) {
	return c.NewProcessBuilder().
		WithSerial(serial).
		WithCommand("pull").
		WithArgs(src, dst).
		WithTimeout(transport.TransferTimeout).
		Invoke(ctx)
}

// Install runs `adb install <args> <src>`.
func (c *Connection) Install(ctx context.Context, serial string, src string, args ...string) (transport.Result, error) {
	return c.NewProcessBuilder().
		WithSerial(serial).
		WithCommand("install").
		WithArgs(args...).
		WithArgs(src).
		WithTimeout(transport.InstallTimeout).
		Invoke(ctx)
}

func (c *Connection) Uninstall(ctx context.Context, serial string, packageName string, args ...string) (transport.Result, error) {
	return c.NewProcessBuilder().
		WithSerial(serial).
		WithCommand("uninstall").
		WithArgs(args...).
		WithArgs(packageName).
		WithTimeout(transport.InstallTimeout).
		Invoke(ctx)
}

// ParseDevices parses `adb devices -l` output. Only rows in the "device" or
// "authorized" state are returned.
func ParseDevices(output string) []types.Device {
	var devices []types.Device

	lines := strings.Split(output, "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of devices") || strings.HasPrefix(line, "*") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		status := types.ParseDeviceStatus(fields[1])
		if !status.IsConnected() {
			continue
		}

		device := types.NewDevice(fields[0], status)
		for _, field := range fields[2:] {
			key, value, ok := strings.Cut(field, ":")
			if !ok {
				continue
			}
			switch key {
			case "model":
				device.Model = value
			case "product":
				device.Product = value
			case "transport_id":
				device.TransportID = value
			}
		}
		devices = append(devices, device)
	}
	return devices
}
