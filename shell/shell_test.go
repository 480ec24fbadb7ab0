package shell

import (
	"context"
	"testing"

	"github.com/essentialkaos/ek/v12/fmtutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sephiroth74/go_adb_apps/connection"
	"github.com/sephiroth74/go_adb_apps/transport"
	"github.com/sephiroth74/go_adb_apps/transport/transporttest"
	"github.com/sephiroth74/go_adb_apps/types"
)

const getpropOutput = `[ro.build.version.release]: [14]
[ro.build.version.sdk]: [34]
[ro.product.brand]: [google]
[ro.product.cpu.abi]: [arm64-v8a]
[ro.product.manufacturer]: [Google]
[ro.product.model]: [Pixel 7]
[persist.sys.locale]: [${not.expanded}]
`

func newShell(runner *transporttest.FakeRunner) *Shell {
	return NewShell(connection.NewConnection("adb", runner, zerolog.Nop()), "emulator-5554")
}

func TestGetProps(t *testing.T) {
	runner := transporttest.NewFakeRunner().On("-s emulator-5554 shell getprop", getpropOutput)

	props, err := newShell(runner).GetProps(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "14", props.GetString("ro.build.version.release", ""))
	assert.Equal(t, "Pixel 7", props.GetString("ro.product.model", ""))
	assert.Equal(t, "${not.expanded}", props.GetString("persist.sys.locale", ""))
	assert.Equal(t, 7, props.Len())
}

func TestGetPropValue(t *testing.T) {
	runner := transporttest.NewFakeRunner().
		On("-s emulator-5554 shell getprop ro.product.brand", "samsung\n").
		OnResult("-s emulator-5554 shell getprop ro.missing", transport.ErrorResult("error: closed"), nil)

	s := newShell(runner)
	value, err := s.GetPropValue(context.Background(), "ro.product.brand")
	assert.NoError(t, err)
	assert.Equal(t, "samsung", value)

	_, err = s.GetPropValue(context.Background(), "ro.missing")
	assert.True(t, types.IsKind(err, types.KindCommandFailed))
}

func TestParseMemInfo(t *testing.T) {
	props, err := parseMemInfo("MemTotal:        3809100 kB\nMemFree:          180236 kB\nActive(anon):     512000 kB\n")
	require.NoError(t, err)
	assert.Equal(t, "3809100 kB", props.GetString("MemTotal", ""))
	assert.Equal(t, "512000 kB", props.GetString("Active(anon)", ""))
}

func TestParseDisplaySize(t *testing.T) {
	size, err := parseDisplaySize("Physical size: 1080x2400\n")
	assert.NoError(t, err)
	assert.Equal(t, "1080x2400", size.String())

	size, err = parseDisplaySize("Physical size: 1080x2400\nOverride size: 720x1600\n")
	assert.NoError(t, err)
	assert.Equal(t, types.Size{Width: 720, Height: 1600}, size)

	_, err = parseDisplaySize("")
	assert.Error(t, err)
}

func TestParseDensity(t *testing.T) {
	density, err := parseDensity("Physical density: 420\n")
	assert.NoError(t, err)
	assert.Equal(t, "420", density)

	density, err = parseDensity("Physical density: 420\nOverride density: 360\n")
	assert.NoError(t, err)
	assert.Equal(t, "360", density)
}

func TestParseDiskUsage(t *testing.T) {
	used, total, err := parseDiskUsage(`Filesystem     1K-blocks    Used Available Use% Mounted on
/dev/block/dm-5   5999404 2144000   3838404  37% /data
`)
	assert.NoError(t, err)
	assert.Equal(t, fmtutil.PrettySize(2144000*1024, " "), used)
	assert.Equal(t, fmtutil.PrettySize(5999404*1024, " "), total)

	used, total, err = parseDiskUsage(`Filesystem               Size     Used     Free   Blksize
/data                    5.8G     2.1G     3.7G   4096
`)
	assert.NoError(t, err)
	assert.Equal(t, "2.1G", used)
	assert.Equal(t, "5.8G", total)

	_, _, err = parseDiskUsage("df: /data: Permission denied")
	assert.Error(t, err)
}

func TestDisplaySizeFromDevice(t *testing.T) {
	runner := transporttest.NewFakeRunner().On("-s emulator-5554 shell wm size", "Physical size: 1440x3120")
	size, err := newShell(runner).DisplaySize(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, uint(1440), size.Width)
}
