package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/urfave/cli/v3"

	"github.com/sephiroth74/go_adb_apps/events"
	"github.com/sephiroth74/go_adb_apps/installer"
	"github.com/sephiroth74/go_adb_apps/session"
	"github.com/sephiroth74/go_adb_apps/types"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitGeneralError, exitCode(errors.New("boom")))
	assert.Equal(t, ExitDeviceUnavailable, exitCode(types.DeviceUnavailable("emulator-5554")))
	assert.Equal(t, ExitToolUnavailable, exitCode(fmt.Errorf("startup: %w", types.NewError(types.KindToolUnavailable, "adb not found", nil))))
	assert.Equal(t, ExitTimeout, exitCode(context.DeadlineExceeded))
	assert.Equal(t, ExitInstallFailed, exitCode(&types.Error{Kind: types.KindInstallFailed, Cause: "insufficient_storage"}))
	assert.Equal(t, ExitConfigError, exitCode(&exitError{code: ExitConfigError, err: errors.New("bad json")}))
}

func TestDescribe(t *testing.T) {
	a := &app{styles: newStyles()}

	line := a.describe(events.AdbEvent{Event: events.DevicesChanged, Item: []types.Device{types.NewDevice("emulator-5554", types.StatusDevice)}})
	assert.Contains(t, line, "emulator-5554")

	line = a.describe(events.AdbEvent{Event: events.SelectionCleared, Item: "emulator-5554"})
	assert.Contains(t, line, "emulator-5554 disconnected")

	line = a.describe(events.AdbEvent{Event: events.OperationFinished, Item: events.Operation{Name: "install", Result: types.Succeeded("Installed vlc.apk")}})
	assert.Contains(t, line, "Installed vlc.apk")

	batch := installer.BatchOutcome{Attempted: 2, Succeeded: []string{"a.apk"}, Failures: []installer.BatchFailure{{Name: "b.apk", Message: "Not enough storage"}}}
	line = a.describe(events.AdbEvent{Event: events.OperationFinished, Item: events.Operation{Name: "install batch", Result: batch}})
	assert.Contains(t, line, "1 of 2 installed")

	assert.Equal(t, "", a.describe(events.AdbEvent{Event: events.OperationStarted, Item: events.Operation{Name: "list apps"}}))
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, 0, clamp(-1, 3))
	assert.Equal(t, 2, clamp(5, 3))
	assert.Equal(t, 0, clamp(1, 0))

	assert.Equal(t, "VLC", truncate("VLC", 5))
	assert.Equal(t, "Vide…", truncate("Videolan Vlc", 5))

	help := helpLine()
	for _, k := range []string{"tab", "enter", "q quit"} {
		assert.True(t, strings.Contains(help, k), k)
	}
}

func TestPollInterval(t *testing.T) {
	run := func(args ...string) (time.Duration, error) {
		var interval time.Duration
		cmd := &cli.Command{
			Name:  "watch",
			Flags: []cli.Flag{&cli.DurationFlag{Name: "interval", Value: 3 * time.Second}},
			Action: func(ctx context.Context, cmd *cli.Command) (err error) {
				interval, err = pollInterval(cmd)
				return err
			},
		}
		err := cmd.Run(context.Background(), append([]string{"watch"}, args...))
		return interval, err
	}

	interval, err := run()
	assert.NoError(t, err)
	assert.Equal(t, 3*time.Second, interval)

	for _, value := range []string{"0s", "-1s"} {
		_, err := run("--interval", value)
		assert.ErrorIs(t, err, session.ErrInvalidInterval, value)
	}
}
