package activitymanager_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/sephiroth74/go_adb_apps/activitymanager"
	"github.com/sephiroth74/go_adb_apps/connection"
	"github.com/sephiroth74/go_adb_apps/shell"
	"github.com/sephiroth74/go_adb_apps/transport"
	"github.com/sephiroth74/go_adb_apps/transport/transporttest"
	"github.com/sephiroth74/go_adb_apps/types"
)

const serial = "emulator-5554"

func newActivityManager(runner *transporttest.FakeRunner) *activitymanager.ActivityManager {
	conn := connection.NewConnection("adb", runner, zerolog.Nop())
	return activitymanager.NewActivityManager(shell.NewShell(conn, serial))
}

func TestForceStop(t *testing.T) {
	runner := transporttest.NewFakeRunner().
		On("-s "+serial+" shell am force-stop org.videolan.vlc", "")
	outcome := newActivityManager(runner).ForceStop(context.Background(), "org.videolan.vlc")
	assert.True(t, outcome.Success)
	assert.Equal(t, "Stopped org.videolan.vlc", outcome.Message)

	runner = transporttest.NewFakeRunner().
		OnResult("-s "+serial+" shell am force-stop org.videolan.vlc", transport.ErrorResult("error: device offline"), nil)
	outcome = newActivityManager(runner).ForceStop(context.Background(), "org.videolan.vlc")
	assert.False(t, outcome.Success)
	assert.Equal(t, types.SeverityError, outcome.Severity)
}

func TestLaunch(t *testing.T) {
	args := "-s " + serial + " shell monkey -p org.videolan.vlc -c android.intent.category.LAUNCHER 1"
	runner := transporttest.NewFakeRunner().
		On(args, "Events injected: 1\n## Network stats: elapsed time=12ms").
		On(args, "** No activities found to run, monkey aborted.")
	am := newActivityManager(runner)

	assert.True(t, am.Launch(context.Background(), "org.videolan.vlc").Success)

	outcome := am.Launch(context.Background(), "org.videolan.vlc")
	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Message, "no launcher activity")
}
