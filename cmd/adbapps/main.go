package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	adbapps "github.com/sephiroth74/go_adb_apps"
	"github.com/sephiroth74/go_adb_apps/config"
	"github.com/sephiroth74/go_adb_apps/logging"
	"github.com/sephiroth74/go_adb_apps/session"
	"github.com/sephiroth74/go_adb_apps/types"
)

const (
	ExitSuccess           = 0
	ExitGeneralError      = 1
	ExitConfigError       = 3
	ExitToolUnavailable   = 4
	ExitDeviceUnavailable = 5
	ExitTimeout           = 6
	ExitInstallFailed     = 7
)

// shutdownGrace is how long running operations get to finish on exit before adb is killed.
const shutdownGrace = 3 * time.Second

var errNoDevice = types.NewError(types.KindDeviceUnavailable, "no device connected", nil)

type app struct {
	store   *config.Store
	client  *adbapps.Client
	log     zerolog.Logger
	styles  styles
	timeout time.Duration
	// adbErr is the discovery failure, reported by the commands that need adb.
	adbErr error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{styles: newStyles()}
	if err := a.command().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, a.styles.error.Render(err.Error()))
		stop()
		os.Exit(exitCode(err))
	}
}

func (a *app) command() *cli.Command {
	return &cli.Command{
		Name:    config.AppName,
		Usage:   "manage the apps installed on Android devices",
		Suggest: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "adb",
				Usage:   "path of the adb executable, auto-detected when empty",
				Sources: cli.EnvVars("ADB_PATH"),
			},
			&cli.StringFlag{
				Name:    "device",
				Aliases: []string{"s"},
				Usage:   "serial of the target device, required when more than one is connected",
				Sources: cli.EnvVars("ANDROID_SERIAL"),
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "config file",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "overall timeout of the command, 0 for none",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "enable debug logging",
			},
		},
		Before: a.before,
		Commands: []*cli.Command{
			a.devicesCommand(),
			a.infoCommand(),
			a.appsCommand(),
			a.installCommand(),
			a.uninstallCommand(),
			a.stopCommand(),
			a.launchCommand(),
			a.extractCommand(),
			a.configCommand(),
			a.watchCommand(),
			a.tuiCommand(),
		},
	}
}

func (a *app) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	logging.SetVerbose(cmd.Bool("verbose"))
	a.log = logging.GetLogger("cli")
	a.timeout = cmd.Duration("timeout")

	var err error
	if path := cmd.String("config"); path != "" {
		a.store, err = config.Open(path)
	} else {
		a.store, err = config.OpenDefault()
	}
	if err != nil {
		return ctx, &exitError{code: ExitConfigError, err: err}
	}

	adbPath := cmd.String("adb")
	if adbPath == "" {
		adbPath, a.adbErr = config.Resolve(a.store, a.log)
	} else if !config.IsExecutable(adbPath) {
		a.adbErr = types.NewError(types.KindToolUnavailable, fmt.Sprintf("%s is not executable", adbPath), nil)
	}

	a.client = adbapps.NewClient(adbPath, adbapps.WithLogger(logging.GetLogger("adb")))
	return ctx, nil
}

// requireAdb fails when no adb executable could be found.
func (a *app) requireAdb() error {
	return a.adbErr
}

// context applies the --timeout flag.
func (a *app) context(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout > 0 {
		return context.WithTimeout(ctx, a.timeout)
	}
	return context.WithCancel(ctx)
}

// device returns the --device flag, or the only connected device.
func (a *app) device(ctx context.Context, cmd *cli.Command) (string, error) {
	if id := cmd.String("device"); id != "" {
		return id, nil
	}
	devices, err := a.client.ListDevices(ctx)
	if err != nil {
		return "", err
	}
	switch len(devices) {
	case 0:
		return "", errNoDevice
	case 1:
		return devices[0].ID, nil
	}
	return "", fmt.Errorf("%d devices connected, choose one with --device", len(devices))
}

// pollInterval returns the --interval flag of watch and tui.
func pollInterval(cmd *cli.Command) (time.Duration, error) {
	interval := cmd.Duration("interval")
	if interval <= 0 {
		return 0, fmt.Errorf("--interval %s: %w", interval, session.ErrInvalidInterval)
	}
	return interval, nil
}

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func exitCode(err error) int {
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ExitTimeout
	}
	kind, ok := types.KindOf(err)
	if !ok {
		return ExitGeneralError
	}
	switch kind {
	case types.KindToolUnavailable:
		return ExitToolUnavailable
	case types.KindDeviceUnavailable:
		return ExitDeviceUnavailable
	case types.KindTimeout:
		return ExitTimeout
	case types.KindInstallFailed:
		return ExitInstallFailed
	}
	return ExitGeneralError
}
