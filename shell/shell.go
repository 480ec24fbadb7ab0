package shell

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/essentialkaos/ek/v12/fmtutil"
	"github.com/magiconair/properties"
	streams "github.com/sephiroth74/go_streams"

	"github.com/sephiroth74/go_adb_apps/connection"
	"github.com/sephiroth74/go_adb_apps/transport"
	"github.com/sephiroth74/go_adb_apps/types"
)

var (
	propLineRegexp = regexp.MustCompile(`(?m)^\[(.*)\]\s*:\s*\[([^\]]*)\]$`)
	wmSizeRegexp   = regexp.MustCompile(`(?m)^(Physical|Override) size:\s*(\d+)x(\d+)`)
	wmDensityRegex = regexp.MustCompile(`(?m)^(Physical|Override) density:\s*(\d+)`)
)

type Shell struct {
	Conn   *connection.Connection
	Serial string
}

func NewShell(conn *connection.Connection, serial string) *Shell {
	return &Shell{Conn: conn, Serial: serial}
}

func (s Shell) Execute(ctx context.Context, command string, args ...string) (transport.Result, error) {
	return s.ExecuteWithTimeout(ctx, command, 0, args...)
}

func (s Shell) ExecuteWithTimeout(ctx context.Context, command string, timeout time.Duration, args ...string) (transport.Result, error) {
	return s.newProcess().WithTimeout(timeout).WithArgs(command).WithArgs(args...).Invoke(ctx)
}

func (s Shell) newProcess() *transport.ProcessBuilder {
	return s.Conn.NewProcessBuilder().WithSerial(s.Serial).WithCommand("shell")
}

func (s Shell) Cat(ctx context.Context, filename string) (transport.Result, error) {
	return s.Execute(ctx, "cat", filename)
}

// GetPropValue return the value of the given property key
func (s Shell) GetPropValue(ctx context.Context, key string) (string, error) {
	result, err := s.ExecuteWithTimeout(ctx, "getprop", transport.StatusTimeout, key)
	if err := transport.Check(result, err, "getprop "+key); err != nil {
		return "", err
	}
	return result.Output(), nil
}

// GetProps returns every system property of the device.
func (s Shell) GetProps(ctx context.Context) (*properties.Properties, error) {
	result, err := s.Execute(ctx, "getprop")
	if err := transport.Check(result, err, "getprop"); err != nil {
		return nil, err
	}

	props := properties.NewProperties()
	props.DisableExpansion = true
	for _, t := range parsePropLines(result.Output()) {
		if _, _, err := props.Set(t.First, t.Second); err != nil {
			return nil, err
		}
	}
	return props, nil
}

// DumpSys is a tool that runs on Android devices and provides information about system services.
func (s Shell) DumpSys(ctx context.Context, args ...string) (transport.Result, error) {
	return s.Execute(ctx, "dumpsys", args...)
}

// MemInfo returns /proc/meminfo as properties, e.g. MemTotal = "3809100 kB".
func (s Shell) MemInfo(ctx context.Context) (*properties.Properties, error) {
	result, err := s.Cat(ctx, "/proc/meminfo")
	if err := transport.Check(result, err, "meminfo"); err != nil {
		return nil, err
	}
	return parseMemInfo(result.Output())
}

// DisplaySize returns the override size when set, the physical size otherwise.
func (s Shell) DisplaySize(ctx context.Context) (types.Size, error) {
	result, err := s.Execute(ctx, "wm", "size")
	if err := transport.Check(result, err, "wm size"); err != nil {
		return types.Size{}, err
	}
	return parseDisplaySize(result.Output())
}

func (s Shell) Density(ctx context.Context) (string, error) {
	result, err := s.Execute(ctx, "wm", "density")
	if err := transport.Check(result, err, "wm density"); err != nil {
		return "", err
	}
	return parseDensity(result.Output())
}

// DiskUsage returns the used and total size of the filesystem holding path, as reported by df.
func (s Shell) DiskUsage(ctx context.Context, path string) (used string, total string, err error) {
	result, err := s.Execute(ctx, "df", path)
	if err := transport.Check(result, err, "df"); err != nil {
		return "", "", err
	}
	return parseDiskUsage(result.Output())
}

//

func parsePropLines(text string) []types.Pair[string, string] {
	m := propLineRegexp.FindAllStringSubmatch(text, -1)
	return streams.Map(m, func(match []string) types.Pair[string, string] {
		return types.Pair[string, string]{
			First:  match[1],
			Second: match[2],
		}
	})
}

func parseMemInfo(text string) (*properties.Properties, error) {
	props := properties.NewProperties()
	props.DisableExpansion = true
	for _, line := range strings.Split(text, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if _, _, err := props.Set(strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
			return nil, err
		}
	}
	return props, nil
}

func parseDisplaySize(text string) (types.Size, error) {
	var size *types.Size
	for _, m := range wmSizeRegexp.FindAllStringSubmatch(text, -1) {
		w, _ := strconv.ParseUint(m[2], 10, 32)
		h, _ := strconv.ParseUint(m[3], 10, 32)
		if size == nil || m[1] == "Override" {
			size = &types.Size{Width: uint(w), Height: uint(h)}
		}
	}
	if size == nil {
		return types.Size{}, fmt.Errorf("unable to parse display size: %q", text)
	}
	return *size, nil
}

func parseDensity(text string) (string, error) {
	var density string
	for _, m := range wmDensityRegex.FindAllStringSubmatch(text, -1) {
		if density == "" || m[1] == "Override" {
			density = m[2]
		}
	}
	if density == "" {
		return "", fmt.Errorf("unable to parse density: %q", text)
	}
	return density, nil
}

// parseDiskUsage reads the last row of df output: Filesystem Size Used Avail Use% Mounted.
// Sizes in 1K blocks are converted, older df already prints them human readable.
func parseDiskUsage(text string) (string, string, error) {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) < 2 {
		return "", "", fmt.Errorf("unable to parse df output: %q", text)
	}
	fields := strings.Fields(lines[len(lines)-1])
	if len(fields) < 4 {
		return "", "", fmt.Errorf("unable to parse df output: %q", text)
	}
	return formatBlocks(fields[2]), formatBlocks(fields[1]), nil
}

func formatBlocks(value string) string {
	blocks, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return value
	}
	return fmtutil.PrettySize(blocks*1024, " ")
}
