package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"atomicgo.dev/keyboard"
	"atomicgo.dev/keyboard/keys"
	"github.com/reactivex/rxgo/v2"
	"github.com/urfave/cli/v3"

	"github.com/sephiroth74/go_adb_apps/config"
	"github.com/sephiroth74/go_adb_apps/events"
	"github.com/sephiroth74/go_adb_apps/installer"
	"github.com/sephiroth74/go_adb_apps/session"
	"github.com/sephiroth74/go_adb_apps/types"
)

func (a *app) watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "follow device connections until q is pressed",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "interval",
				Value: 3 * time.Second,
				Usage: "device scan interval",
			},
		},
		Action: a.watch,
	}
}

func (a *app) watch(ctx context.Context, cmd *cli.Command) error {
	if err := a.requireAdb(); err != nil {
		return err
	}
	interval, err := pollInterval(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess := session.NewSession(a.client, a.log)
	defer func() {
		if err := sess.Shutdown(shutdownGrace); err != nil {
			a.log.Warn().Msgf("shutdown: %v", err)
		}
	}()

	sess.Events().DoOnNext(func(i interface{}) {
		if event, ok := i.(events.AdbEvent); ok {
			if line := a.describe(event); line != "" {
				fmt.Println(line)
			}
		}
	}, rxgo.WithBufferedChannel(32))

	poller := session.NewPoller(sess, interval)
	go func() { _ = poller.Run(ctx) }()

	go func() {
		err := a.store.Watch(ctx, a.log, func(c config.Config) {
			if c.AdbPath != "" {
				sess.SetAdbPath(c.AdbPath)
			}
		})
		if err != nil {
			a.log.Warn().Msgf("config watch failed: %v", err)
		}
	}()

	sess.CheckAdb()
	fmt.Println(a.styles.help.Render("r: refresh  q: quit"))

	return keyboard.Listen(func(key keys.Key) (stop bool, err error) {
		if ctx.Err() != nil {
			return true, nil
		}
		switch key.Code {
		case keys.CtrlC, keys.Escape:
			return true, nil
		case keys.RuneKey:
			switch key.String() {
			case "q":
				return true, nil
			case "r":
				if !poller.Refresh() {
					fmt.Println(a.styles.help.Render("refresh already requested"))
				}
			}
		}
		return false, nil
	})
}

// describe renders an event as a single line, or "" for events not worth printing.
func (a *app) describe(event events.AdbEvent) string {
	switch event.Event {
	case events.DevicesChanged:
		devices, _ := event.Item.([]types.Device)
		if len(devices) == 0 {
			return a.styles.help.Render("no devices connected")
		}
		names := make([]string, 0, len(devices))
		for _, d := range devices {
			names = append(names, fmt.Sprintf("%s (%s)", d.DisplayName(), d.ID))
		}
		return a.styles.label.Render("devices ") + a.styles.value.Render(strings.Join(names, ", "))

	case events.SelectionCleared:
		return a.styles.warning.Render(fmt.Sprintf("%v disconnected", event.Item))

	case events.AdbStatus:
		check, _ := event.Item.(session.AdbCheck)
		if check.Err != nil {
			return a.styles.error.Render("adb unavailable: " + check.Err.Error())
		}
		return a.styles.help.Render("adb " + check.Version + " at " + a.client.AdbPath())

	case events.ConfigChanged:
		return a.styles.help.Render(fmt.Sprintf("adb path changed to %v", event.Item))

	case events.OperationFinished:
		op, _ := event.Item.(events.Operation)
		return a.describeOperation(op)
	}
	return ""
}

func (a *app) describeOperation(op events.Operation) string {
	switch result := op.Result.(type) {
	case types.Outcome:
		if result.Success {
			return a.styles.success.Render(result.Message)
		}
		if result.Severity == types.SeverityWarning {
			return a.styles.warning.Render(result.Message)
		}
		return a.styles.error.Render(result.Message)
	case installer.BatchOutcome:
		if result.Success {
			return a.styles.success.Render(result.Summary())
		}
		return a.styles.warning.Render(result.Summary())
	}
	if op.Err != nil && op.Name == "scan devices" {
		return a.styles.error.Render("device scan failed: " + op.Err.Error())
	}
	return ""
}
