package activitymanager

import (
	"context"
	"fmt"
	"strings"

	"github.com/sephiroth74/go_adb_apps/shell"
	"github.com/sephiroth74/go_adb_apps/transport"
	"github.com/sephiroth74/go_adb_apps/types"
)

type ActivityManager struct {
	Shell *shell.Shell
}

func NewActivityManager(sh *shell.Shell) *ActivityManager {
	return &ActivityManager{Shell: sh}
}

// ForceStop kills every process of packageName.
func (a ActivityManager) ForceStop(ctx context.Context, packageName string) types.Outcome {
	result, err := a.Shell.Execute(ctx, "am", "force-stop", packageName)
	if err := transport.Check(result, err, "am force-stop "+packageName); err != nil {
		return types.Failed(err)
	}
	return types.Succeeded(fmt.Sprintf("Stopped %s", packageName))
}

// Launch starts the launcher activity of packageName.
func (a ActivityManager) Launch(ctx context.Context, packageName string) types.Outcome {
	result, err := a.Shell.Execute(ctx, "monkey", "-p", packageName, "-c", "android.intent.category.LAUNCHER", "1")
	if err := transport.Check(result, err, "monkey "+packageName); err != nil {
		return types.Failed(err)
	}
	// monkey exits 0 even when the package has no launcher activity
	if strings.Contains(result.Output(), "No activities found") {
		return types.Failed(types.NewError(types.KindCommandFailed, fmt.Sprintf("%s has no launcher activity", packageName), nil))
	}
	return types.Succeeded(fmt.Sprintf("Launched %s", packageName))
}
