package adbapps_test

import (
	"context"
	"testing"

	"github.com/essentialkaos/ek/v12/fmtutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adbapps "github.com/sephiroth74/go_adb_apps"
	"github.com/sephiroth74/go_adb_apps/connection"
	"github.com/sephiroth74/go_adb_apps/transport"
	"github.com/sephiroth74/go_adb_apps/transport/transporttest"
	"github.com/sephiroth74/go_adb_apps/types"
)

const serial = "emulator-5554"

const getprop = `[dalvik.vm.heapsize]: [512m]
[ro.build.version.release]: [14]
[ro.build.version.sdk]: [34]
[ro.product.brand]: [google]
[ro.product.cpu.abi]: [x86_64]
[ro.product.manufacturer]: [Google]
[ro.product.model]: [sdk_gphone64_x86_64]
[ro.product.name]: [sdk_gphone64_x86_64]
`

const meminfo = `MemTotal:        3809100 kB
MemFree:          812344 kB
MemAvailable:    2212880 kB
`

const df = `Filesystem     1K-blocks    Used Available Use% Mounted on
/dev/block/dm-5   5999404 2144000   3838404  37% /data
`

func newClient(runner *transporttest.FakeRunner) *adbapps.Client {
	runner.
		On("-s "+serial+" get-state", "device").
		On("devices -l", "List of devices attached\n"+serial+" device product:sdk model:sdk_gphone64_x86_64 transport_id:1\n")
	return adbapps.NewClient("/opt/platform-tools/adb", adbapps.WithRunner(runner), adbapps.WithLogger(zerolog.Nop()))
}

func TestNewClient(t *testing.T) {
	client := adbapps.NewClient("/opt/platform-tools/adb", adbapps.WithPolicy(connection.PrimaryOrFallback))
	assert.Equal(t, "/opt/platform-tools/adb", client.AdbPath())
	assert.Equal(t, connection.PrimaryOrFallback, client.Conn.Policy)
	assert.NotNil(t, client.Installer)

	client.SetAdbPath("/usr/bin/adb")
	assert.Equal(t, "/usr/bin/adb", client.AdbPath())
	assert.Equal(t, "/usr/bin/adb", client.Conn.NewProcessBuilder().Command().ADBPath)
}

func TestLoadDetails(t *testing.T) {
	runner := transporttest.NewFakeRunner().
		On("-s "+serial+" shell getprop", getprop).
		On("-s "+serial+" shell wm size", "Physical size: 1080x2400\nOverride size: 720x1600").
		On("-s "+serial+" shell wm density", "Physical density: 420").
		On("-s "+serial+" shell cat /proc/meminfo", meminfo).
		On("-s "+serial+" shell df /data", df)
	client := newClient(runner)

	device, err := client.LoadDetails(context.Background(), serial)
	require.NoError(t, err)

	assert.Equal(t, serial, device.ID)
	assert.Equal(t, "google", device.Brand)
	assert.Equal(t, "Google", device.Manufacturer)
	assert.Equal(t, "sdk_gphone64_x86_64", device.Model)
	assert.Equal(t, "14", device.AndroidVersion)
	assert.Equal(t, "34", device.SdkVersion)
	assert.Equal(t, "x86_64", device.CPUArch)
	assert.Equal(t, "720x1600", device.Resolution)
	assert.Equal(t, "420 dpi", device.Density)
	assert.Contains(t, device.TotalRAM, "GB")
	assert.Equal(t, fmtutil.PrettySize(2144000*1024, " ")+" / "+fmtutil.PrettySize(5999404*1024, " "), device.Storage)
	assert.Equal(t, "google sdk_gphone64_x86_64", device.DisplayName())
}

func TestLoadDetailsPartialFailure(t *testing.T) {
	runner := transporttest.NewFakeRunner().
		On("-s "+serial+" shell getprop", "[ro.product.model]: [Pixel 5]\n").
		OnResult("-s "+serial+" shell wm size", transport.ErrorResult("wm: not found"), nil).
		OnResult("-s "+serial+" shell wm density", transport.Result{ExitCode: -1}, transport.ErrTimeout).
		OnResult("-s "+serial+" shell cat /proc/meminfo", transport.ErrorResult("Permission denied"), nil).
		On("-s "+serial+" shell df /data", "garbage")
	client := newClient(runner)

	device, err := client.LoadDetails(context.Background(), serial)
	require.NoError(t, err)

	assert.Equal(t, "Pixel 5", device.Model)
	assert.Equal(t, types.Unknown, device.Brand)
	assert.Equal(t, types.Unknown, device.Resolution)
	assert.Equal(t, types.Unknown, device.Density)
	assert.Equal(t, types.Unknown, device.TotalRAM)
	assert.Equal(t, types.Unknown, device.Storage)
}

func TestLoadDetailsDeviceUnavailable(t *testing.T) {
	runner := transporttest.NewFakeRunner().
		OnResult("-s R58M42ABCDE get-state", transport.ErrorResult("error: device 'R58M42ABCDE' not found"), nil)
	client := newClient(runner)

	_, err := client.LoadDetails(context.Background(), "R58M42ABCDE")
	assert.True(t, types.IsKind(err, types.KindDeviceUnavailable))
	assert.Equal(t, 0, runner.CallCount("-s R58M42ABCDE shell"))
}

func TestClientDelegates(t *testing.T) {
	runner := transporttest.NewFakeRunner().
		On("-s "+serial+" shell getprop ro.product.brand", "google").
		On("-s "+serial+" shell pm list packages -f -3", "package:/data/app/~~x==/org.videolan.vlc-1/base.apk=org.videolan.vlc\n").
		On("-s "+serial+" shell dumpsys package org.videolan.vlc", "Packages:\n  Package [org.videolan.vlc]\n    versionName=3.5.4\n").
		On("-s "+serial+" uninstall org.videolan.vlc", "Success").
		On("version", "Android Debug Bridge version 1.0.41\nVersion 34.0.5-10900879\n")
	client := newClient(runner)
	ctx := context.Background()

	devices, err := client.ListDevices(ctx)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "google", devices[0].Brand)

	assert.True(t, client.IsDeviceAvailable(ctx, serial))
	assert.False(t, client.IsDeviceAvailable(ctx, "missing"))

	apps, err := client.ListPackages(ctx, serial, types.FilterUser)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "org.videolan.vlc", apps[0].PackageName)
	assert.Equal(t, "3.5.4", apps[0].Version)

	outcome := client.Uninstall(ctx, serial, "org.videolan.vlc")
	assert.True(t, outcome.Success)

	version, err := client.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.0.41", version)
}
