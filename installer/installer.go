package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sephiroth74/go_adb_apps/connection"
	"github.com/sephiroth74/go_adb_apps/packagemanager"
	"github.com/sephiroth74/go_adb_apps/transport"
	"github.com/sephiroth74/go_adb_apps/types"
	"github.com/sephiroth74/go_adb_apps/workmanager"
)

type Installer struct {
	Conn     *connection.Connection
	Packages *packagemanager.PackageManager
	Log      zerolog.Logger
}

func NewInstaller(conn *connection.Connection, packages *packagemanager.PackageManager) *Installer {
	return &Installer{Conn: conn, Packages: packages, Log: conn.Log}
}

// Install runs `adb install -r` for the local apk. The local file and the device
// are checked before adb is invoked.
func (i Installer) Install(ctx context.Context, apkPath string, serial string) types.Outcome {
	if err := i.install(ctx, apkPath, serial); err != nil {
		i.Log.Warn().Str("device", serial).Str("apk", apkPath).Msgf("install failed: %v", err)
		return types.Failed(err)
	}
	i.Log.Info().Str("device", serial).Msgf("installed %s", filepath.Base(apkPath))
	return types.Succeeded(fmt.Sprintf("Installed %s", filepath.Base(apkPath)))
}

func (i Installer) install(ctx context.Context, apkPath string, serial string) error {
	if info, err := os.Stat(apkPath); err != nil || info.IsDir() {
		return &types.Error{
			Kind:    types.KindCommandFailed,
			Cause:   CauseFileNotFound,
			Message: fmt.Sprintf("APK not found: %s", apkPath),
			Err:     err,
		}
	}

	if err := i.Conn.RequireDevice(ctx, serial); err != nil {
		return err
	}

	result, err := i.Conn.Install(ctx, serial, apkPath, "-r")
	return classify(result, err, "install")
}

// InstallBatch installs every apk in order. A failure does not stop the batch
// and nothing is rolled back.
func (i Installer) InstallBatch(ctx context.Context, apkPaths []string, serial string) BatchOutcome {
	works := make([]workmanager.Work, 0, len(apkPaths))
	for _, apk := range apkPaths {
		apk := apk
		works = append(works, workmanager.WorkFunc(func(ctx context.Context, _ workmanager.Data) (workmanager.Data, error) {
			data := workmanager.Data{"name": filepath.Base(apk)}
			return data, i.install(ctx, apk, serial)
		}))
	}

	outcome := BatchOutcome{}
	for pair := range (workmanager.WorkManager{ContinueOnError: true}).Execute(ctx, works...) {
		name, ran := pair.First["name"].(string)
		if !ran {
			// cancelled before the next apk started
			outcome.NotAttempted = baseNames(apkPaths[outcome.Attempted:])
			break
		}
		outcome.Attempted++

		if pair.Second != nil {
			f := types.Failed(pair.Second)
			outcome.Failures = append(outcome.Failures, BatchFailure{Name: name, Cause: f.Cause, Message: f.Message, Err: pair.Second})
		} else {
			outcome.Succeeded = append(outcome.Succeeded, name)
		}
	}

	outcome.Success = len(outcome.Failures) == 0 && outcome.Attempted == len(apkPaths)
	if outcome.Success {
		i.Log.Info().Str("device", serial).Msgf("installed %d apks", len(outcome.Succeeded))
	} else {
		i.Log.Warn().Str("device", serial).Msg(outcome.Summary())
	}
	return outcome
}

// Uninstall removes packageName from the device. The curated cause is set when
// the output matches a known failure, while the message keeps the raw adb output.
func (i Installer) Uninstall(ctx context.Context, serial string, packageName string) types.Outcome {
	if err := i.Conn.RequireDevice(ctx, serial); err != nil {
		return types.Failed(err)
	}

	result, err := i.Conn.Uninstall(ctx, serial, packageName)
	if err := classify(result, err, "uninstall"); err != nil {
		var e *types.Error
		if errors.As(err, &e) && e.Kind == types.KindInstallFailed {
			if raw := strings.TrimSpace(result.Message()); raw != "" {
				e.Message = raw
			}
		}
		i.Log.Warn().Str("device", serial).Msgf("uninstall %s failed: %v", packageName, err)
		return types.Failed(err)
	}

	return types.Succeeded(firstNonEmpty(result.Output(), fmt.Sprintf("Uninstalled %s", packageName)))
}

// Extract copies remotePath from the device to localPath with `adb pull`.
func (i Installer) Extract(ctx context.Context, serial string, remotePath string, localPath string) types.Outcome {
	if err := i.Conn.RequireDevice(ctx, serial); err != nil {
		return types.Failed(err)
	}

	result, err := i.Conn.Pull(ctx, serial, remotePath, localPath)
	if err != nil {
		return types.Failed(transport.AsError(err, "pull "+remotePath))
	}
	if !result.IsOk() {
		return types.Failed(&types.Error{
			Kind:    types.KindCommandFailed,
			Message: firstNonEmpty(result.Error(), result.Output(), result.NewError().Error()),
			Err:     result.NewError(),
		})
	}
	return types.Succeeded(fmt.Sprintf("Extracted to %s", localPath))
}

// ExtractPackage resolves the base apk of packageName and pulls it to <dir>/<package>.apk.
func (i Installer) ExtractPackage(ctx context.Context, serial string, packageName string, dir string) types.Outcome {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return types.Failed(types.NewError(types.KindCommandFailed, "unable to create "+dir, err))
	}

	remote, err := i.Packages.Path(ctx, serial, packageName)
	if err != nil {
		return types.Failed(err)
	}
	return i.Extract(ctx, serial, remote, filepath.Join(dir, packageName+".apk"))
}

// classify converts an install or uninstall result into a typed error.
func classify(result transport.Result, err error, operation string) error {
	if err != nil {
		err = transport.AsError(err, operation)
		if types.IsKind(err, types.KindTimeout) {
			var e *types.Error
			if errors.As(err, &e) {
				e.Cause = CauseTimeout
			}
		}
		return err
	}

	stdout := string(result.Stdout)
	stderr := string(result.Stderr)
	if result.IsOk() && !HasFailureMarker(stdout) && !HasFailureMarker(stderr) {
		return nil
	}

	line := ExtractErrorLine(stdout, stderr)
	cause, message := ClassifyError(line)
	return &types.Error{
		Kind:    types.KindInstallFailed,
		Cause:   cause,
		Message: message,
		Err:     fmt.Errorf("%s: %s", operation, firstNonEmpty(line, result.NewError().Error())),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
