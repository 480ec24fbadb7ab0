package installer_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sephiroth74/go_adb_apps/connection"
	"github.com/sephiroth74/go_adb_apps/installer"
	"github.com/sephiroth74/go_adb_apps/packagemanager"
	"github.com/sephiroth74/go_adb_apps/transport"
	"github.com/sephiroth74/go_adb_apps/transport/transporttest"
	"github.com/sephiroth74/go_adb_apps/types"
)

const serial = "emulator-5554"

func newInstaller(runner *transporttest.FakeRunner) *installer.Installer {
	runner.
		On("-s "+serial+" get-state", "device").
		On("devices -l", "List of devices attached\n"+serial+" device model:sdk\n")
	conn := connection.NewConnection("adb", runner, zerolog.Nop())
	return installer.NewInstaller(conn, packagemanager.NewPackageManager(conn))
}

func apk(t *testing.T, dir string, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("PK"), 0o644))
	return path
}

func TestClassifyError(t *testing.T) {
	for _, tc := range []struct {
		text  string
		cause string
	}{
		{"Failure [INSTALL_FAILED_INSUFFICIENT_STORAGE]", installer.CauseInsufficientStorage},
		{"adb: failed to install x.apk: Failure [INSTALL_FAILED_MISSING_SPLIT: x]", installer.CauseMissingSplit},
		{"Failure [INSTALL_FAILED_NO_MATCHING_ABIS: Failed to extract native libraries, res=-113]", installer.CauseNoMatchingAbis},
		{"Failure [INSTALL_FAILED_UPDATE_INCOMPATIBLE: Package x signatures do not match previously installed version]", installer.CauseInconsistentCertificates},
		{"Failure [INSTALL_FAILED_UPDATE_INCOMPATIBLE: Existing package x]", installer.CauseUpdateIncompatible},
		{"Failure [INSTALL_FAILED_VERSION_DOWNGRADE]", installer.CauseVersionDowngrade},
		{"Failure [INSTALL_FAILED_ALREADY_EXISTS]", installer.CauseAlreadyExists},
		{"Failure [INSTALL_FAILED_OLDER_SDK: Requires newer sdk version #34]", installer.CauseOlderSdk},
		{"Failure [INSTALL_PARSE_FAILED_NOT_APK: Failed to parse /data/app/vmdl.tmp]", installer.CauseInvalidApk},
		{"adb: error: device offline", installer.CauseDeviceOffline},
		{"error: device 'abc' not found", installer.CauseDeviceOffline},
		{"cmd: Failure calling service package: Permission denied", installer.CausePermissionDenied},
		{"adb: connection timed out", installer.CauseTimeout},
		{"Failure [INSTALL_FAILED_SPLIT_SOMETHING_NEW]", installer.CauseSplitOrAbi},
		{"Failure [INSTALL_FAILED_ABI_MISMATCH]", installer.CauseSplitOrAbi},
		{"Failure [INSTALL_FAILED_INTERNAL_ERROR]", installer.CauseUnknown},
	} {
		cause, message := installer.ClassifyError(tc.text)
		assert.Equal(t, tc.cause, cause, tc.text)
		assert.NotEmpty(t, message, tc.text)
	}
}

func TestExtractErrorLine(t *testing.T) {
	assert.Equal(t, "adb: failed to install /tmp/x.apk: Failure [INSTALL_FAILED_INSUFFICIENT_STORAGE]",
		installer.ExtractErrorLine("Performing Streamed Install\n", "adb: failed to install /tmp/x.apk: Failure [INSTALL_FAILED_INSUFFICIENT_STORAGE]\n"))

	assert.Equal(t, "Failure [INSTALL_FAILED_ALREADY_EXISTS]",
		installer.ExtractErrorLine("Performing Push Install\nFailure [INSTALL_FAILED_ALREADY_EXISTS]\n", ""))

	assert.Equal(t, "something odd", installer.ExtractErrorLine("", "\n  something odd  \nmore"))
	assert.Equal(t, "", installer.ExtractErrorLine("", ""))
}

func TestHasFailureMarker(t *testing.T) {
	assert.True(t, installer.HasFailureMarker("Performing Streamed Install\nFailure [INSTALL_FAILED_OLDER_SDK]"))
	assert.True(t, installer.HasFailureMarker("Failure"))
	assert.False(t, installer.HasFailureMarker("Success"))
	assert.False(t, installer.HasFailureMarker("com.example.FailureReporter"))
}

func TestInstallSuccess(t *testing.T) {
	path := apk(t, t.TempDir(), "app.apk")
	runner := transporttest.NewFakeRunner().On("-s "+serial+" install -r "+path, "Performing Streamed Install\nSuccess\n")

	outcome := newInstaller(runner).Install(context.Background(), path, serial)
	assert.True(t, outcome.Success, outcome.Message)
	assert.Equal(t, types.SeveritySuccess, outcome.Severity)
	assert.Contains(t, outcome.Message, "app.apk")
}

func TestInstallInsufficientStorage(t *testing.T) {
	path := apk(t, t.TempDir(), "big.apk")
	runner := transporttest.NewFakeRunner().OnResult("-s "+serial+" install -r "+path, transport.Result{
		ExitCode: 1,
		Stdout:   []byte("Performing Streamed Install\n"),
		Stderr:   []byte("adb: failed to install " + path + ": Failure [INSTALL_FAILED_INSUFFICIENT_STORAGE]\n"),
	}, nil)

	outcome := newInstaller(runner).Install(context.Background(), path, serial)
	assert.False(t, outcome.Success)
	assert.Equal(t, types.SeverityError, outcome.Severity)
	assert.Equal(t, installer.CauseInsufficientStorage, outcome.Cause)
	assert.True(t, types.IsKind(outcome.Error(), types.KindInstallFailed))
}

func TestInstallFailureWithZeroExit(t *testing.T) {
	path := apk(t, t.TempDir(), "old.apk")
	runner := transporttest.NewFakeRunner().On("-s "+serial+" install -r "+path, "pkg: /data/local/tmp/old.apk\nFailure [INSTALL_FAILED_VERSION_DOWNGRADE]\n")

	outcome := newInstaller(runner).Install(context.Background(), path, serial)
	assert.False(t, outcome.Success)
	assert.Equal(t, installer.CauseVersionDowngrade, outcome.Cause)
}

func TestInstallMissingFile(t *testing.T) {
	runner := transporttest.NewFakeRunner()
	outcome := newInstaller(runner).Install(context.Background(), filepath.Join(t.TempDir(), "nope.apk"), serial)

	assert.False(t, outcome.Success)
	assert.Equal(t, installer.CauseFileNotFound, outcome.Cause)
	assert.Empty(t, runner.Calls())
}

func TestInstallDeviceGone(t *testing.T) {
	path := apk(t, t.TempDir(), "app.apk")
	runner := transporttest.NewFakeRunner()
	inst := newInstaller(runner)
	runner.Reset("devices -l").On("devices -l", "List of devices attached\n")

	outcome := inst.Install(context.Background(), path, serial)
	assert.False(t, outcome.Success)
	assert.Equal(t, types.SeverityWarning, outcome.Severity)
	assert.True(t, types.IsKind(outcome.Error(), types.KindDeviceUnavailable))
	assert.Equal(t, 0, runner.CallCount("-s "+serial+" install"))
}

func TestInstallTimeout(t *testing.T) {
	path := apk(t, t.TempDir(), "slow.apk")
	runner := transporttest.NewFakeRunner().
		OnResult("-s "+serial+" install -r "+path, transport.Result{ExitCode: -1}, fmt.Errorf("%w after 5m0s", transport.ErrTimeout))

	outcome := newInstaller(runner).Install(context.Background(), path, serial)
	assert.False(t, outcome.Success)
	assert.Equal(t, installer.CauseTimeout, outcome.Cause)
	assert.True(t, types.IsKind(outcome.Error(), types.KindTimeout))
}

func TestInstallBatchContinuesAfterFailure(t *testing.T) {
	dir := t.TempDir()
	first, second, third := apk(t, dir, "first.apk"), apk(t, dir, "second.apk"), apk(t, dir, "third.apk")

	runner := transporttest.NewFakeRunner().
		On("-s "+serial+" install -r "+first, "Success").
		OnResult("-s "+serial+" install -r "+second, transport.Result{ExitCode: 1, Stderr: []byte("adb: failed to install: Failure [INSTALL_FAILED_NO_MATCHING_ABIS]")}, nil).
		On("-s "+serial+" install -r "+third, "Success")

	outcome := newInstaller(runner).InstallBatch(context.Background(), []string{first, second, third}, serial)

	assert.False(t, outcome.Success)
	assert.Equal(t, 3, outcome.Attempted)
	assert.Equal(t, 3, runner.CallCount("-s "+serial+" install -r"))
	assert.Equal(t, []string{"first.apk", "third.apk"}, outcome.Succeeded)
	require.Len(t, outcome.Failures, 1)
	assert.Equal(t, "second.apk", outcome.Failures[0].Name)
	assert.Equal(t, installer.CauseNoMatchingAbis, outcome.Failures[0].Cause)

	summary := outcome.Summary()
	assert.Contains(t, summary, "2 of 3 installed")
	assert.Contains(t, summary, "Failed: second.apk")
}

func TestInstallBatchCancelled(t *testing.T) {
	dir := t.TempDir()
	a, b := apk(t, dir, "a.apk"), apk(t, dir, "b.apk")
	runner := transporttest.NewFakeRunner()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcome := newInstaller(runner).InstallBatch(ctx, []string{a, b}, serial)

	assert.False(t, outcome.Success)
	assert.Equal(t, 0, outcome.Attempted)
	assert.Empty(t, outcome.Failures)
	assert.Equal(t, []string{"a.apk", "b.apk"}, outcome.NotAttempted)
	assert.Equal(t, 0, runner.CallCount("-s "+serial+" install"))
	assert.Contains(t, outcome.Summary(), "Not attempted: a.apk, b.apk")
}

func TestInstallBatchAllSucceed(t *testing.T) {
	dir := t.TempDir()
	a, b := apk(t, dir, "a.apk"), apk(t, dir, "b.apk")
	runner := transporttest.NewFakeRunner().
		On("-s "+serial+" install -r "+a, "Success").
		On("-s "+serial+" install -r "+b, "Success")

	outcome := newInstaller(runner).InstallBatch(context.Background(), []string{a, b}, serial)
	assert.True(t, outcome.Success)
	assert.Empty(t, outcome.Failures)
}

func TestUninstall(t *testing.T) {
	runner := transporttest.NewFakeRunner().
		On("-s "+serial+" uninstall com.example", "Success").
		OnResult("-s "+serial+" uninstall com.locked", transport.Result{ExitCode: 1, Stdout: []byte("Failure [DELETE_FAILED_DEVICE_POLICY_MANAGER]")}, nil).
		On("-s "+serial+" uninstall com.old", "Failure [DELETE_FAILED_INTERNAL_ERROR]")

	inst := newInstaller(runner)
	ctx := context.Background()

	ok := inst.Uninstall(ctx, serial, "com.example")
	assert.True(t, ok.Success)
	assert.Equal(t, "Success", ok.Message)

	locked := inst.Uninstall(ctx, serial, "com.locked")
	assert.False(t, locked.Success)
	assert.Equal(t, installer.CauseUnknown, locked.Cause)
	assert.Equal(t, "Failure [DELETE_FAILED_DEVICE_POLICY_MANAGER]", locked.Message)

	old := inst.Uninstall(ctx, serial, "com.old")
	assert.False(t, old.Success)
	assert.Equal(t, "Failure [DELETE_FAILED_INTERNAL_ERROR]", old.Message)
}

func TestExtract(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "base.apk")
	runner := transporttest.NewFakeRunner().
		On("-s "+serial+" pull /data/app/x/base.apk "+local, "/data/app/x/base.apk: 1 file pulled").
		OnResult("-s "+serial+" pull /data/app/missing.apk "+local, transport.Result{ExitCode: 1, Stderr: []byte("adb: error: failed to stat remote object '/data/app/missing.apk': No such file or directory")}, nil)

	inst := newInstaller(runner)
	ok := inst.Extract(context.Background(), serial, "/data/app/x/base.apk", local)
	assert.True(t, ok.Success)

	failed := inst.Extract(context.Background(), serial, "/data/app/missing.apk", local)
	assert.False(t, failed.Success)
	assert.Contains(t, failed.Message, "failed to stat remote object")
}

func TestExtractPackage(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	runner := transporttest.NewFakeRunner().
		On("-s "+serial+" shell pm path com.example", "package:/data/app/com.example-1/base.apk").
		On("-s "+serial+" pull /data/app/com.example-1/base.apk "+filepath.Join(dir, "com.example.apk"), "1 file pulled")

	outcome := newInstaller(runner).ExtractPackage(context.Background(), serial, "com.example", dir)
	assert.True(t, outcome.Success, outcome.Message)
	assert.DirExists(t, dir)
}
