package process_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sephiroth74/go_adb_apps/process"
)

func TestFullArgs(t *testing.T) {
	cmd := process.NewADBCommand("/opt/sdk/platform-tools/adb").
		WithSerial("emulator-5554").
		WithCommand("shell").
		WithArgs("getprop").
		AddArgs("ro.product.brand").
		WithTimeout(5 * time.Second)

	assert.Equal(t, []string{"-s", "emulator-5554", "shell", "getprop", "ro.product.brand"}, cmd.FullArgs())
	assert.Equal(t, "/opt/sdk/platform-tools/adb", cmd.Argv()[0])
	assert.Equal(t, "adb -s emulator-5554 shell getprop ro.product.brand", cmd.String())
	assert.Equal(t, 5*time.Second, cmd.Timeout)
}

func TestFullArgsWithoutSerial(t *testing.T) {
	cmd := process.NewADBCommand("adb").WithCommand("devices").AddArgs("-l")
	assert.Equal(t, []string{"devices", "-l"}, cmd.FullArgs())
	assert.Equal(t, []string{"adb", "devices", "-l"}, cmd.Argv())
}
