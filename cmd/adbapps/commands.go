package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/sephiroth74/go_adb_apps/config"
	"github.com/sephiroth74/go_adb_apps/packagemanager"
	"github.com/sephiroth74/go_adb_apps/types"
)

var errMissingArgument = errors.New("missing argument")

func (a *app) devicesCommand() *cli.Command {
	return &cli.Command{
		Name:  "devices",
		Usage: "list the connected devices",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := a.requireAdb(); err != nil {
				return err
			}
			ctx, cancel := a.context(ctx)
			defer cancel()

			devices, err := a.client.ListDevices(ctx)
			if err != nil {
				return err
			}
			if len(devices) == 0 {
				fmt.Println(a.styles.help.Render("no devices connected"))
				return nil
			}
			for _, d := range devices {
				fmt.Printf("%-24s %s %s\n", a.styles.selected.Render(d.ID), a.styles.value.Render(d.DisplayName()), a.styles.help.Render(string(d.Status)))
			}
			return nil
		},
	}
}

func (a *app) infoCommand() *cli.Command {
	return &cli.Command{
		Name:  "info",
		Usage: "show the details of a device",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := a.requireAdb(); err != nil {
				return err
			}
			ctx, cancel := a.context(ctx)
			defer cancel()

			id, err := a.device(ctx, cmd)
			if err != nil {
				return err
			}
			device, err := a.client.LoadDetails(ctx, id)
			if err != nil {
				return err
			}
			fmt.Println(a.renderDetails(device))
			return nil
		},
	}
}

func (a *app) renderDetails(d types.Device) string {
	rows := []types.Pair[string, string]{
		{First: "Serial", Second: d.ID},
		{First: "Brand", Second: d.Brand},
		{First: "Manufacturer", Second: d.Manufacturer},
		{First: "Model", Second: d.Model},
		{First: "Android", Second: d.AndroidVersion},
		{First: "SDK", Second: d.SdkVersion},
		{First: "CPU", Second: d.CPUArch},
		{First: "Resolution", Second: d.Resolution},
		{First: "Density", Second: d.Density},
		{First: "RAM", Second: d.TotalRAM},
		{First: "Storage", Second: d.Storage},
	}

	var sb strings.Builder
	sb.WriteString(a.styles.title.Render(d.DisplayName()))
	for _, row := range rows {
		sb.WriteString("\n")
		sb.WriteString(a.styles.label.Render(fmt.Sprintf("%-13s", row.First)))
		sb.WriteString(a.styles.value.Render(row.Second))
	}
	return a.styles.app.Render(sb.String())
}

func (a *app) appsCommand() *cli.Command {
	return &cli.Command{
		Name:  "apps",
		Usage: "list the installed apps",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "filter",
				Value: "all",
				Usage: "all, user or system",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "print only the package names",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := a.requireAdb(); err != nil {
				return err
			}
			filter, err := types.ParsePackageFilter(cmd.String("filter"))
			if err != nil {
				return err
			}
			ctx, cancel := a.context(ctx)
			defer cancel()

			id, err := a.device(ctx, cmd)
			if err != nil {
				return err
			}
			apps, err := a.client.ListPackages(ctx, id, filter)
			if err != nil {
				return err
			}
			if cmd.Bool("quiet") {
				for _, name := range packagemanager.PackageNames(apps) {
					fmt.Println(name)
				}
				return nil
			}
			for _, item := range apps {
				name := a.styles.value.Render(item.DisplayName)
				if item.IsSystem {
					name = a.styles.system.Render(item.DisplayName)
				}
				fmt.Printf("%s %s %s\n", name, a.styles.label.Render(item.Version), a.styles.help.Render(item.PackageName))
			}
			fmt.Println(a.styles.help.Render(fmt.Sprintf("%d %s apps", len(apps), filter)))
			return nil
		},
	}
}

func (a *app) installCommand() *cli.Command {
	return &cli.Command{
		Name:      "install",
		Usage:     "install one or more apks, replacing existing apps",
		ArgsUsage: "<apk>...",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := a.requireAdb(); err != nil {
				return err
			}
			paths := cmd.Args().Slice()
			if len(paths) == 0 {
				return fmt.Errorf("%w: apk", errMissingArgument)
			}
			ctx, cancel := a.context(ctx)
			defer cancel()

			id, err := a.device(ctx, cmd)
			if err != nil {
				return err
			}

			if len(paths) == 1 {
				return a.report(a.client.Install(ctx, paths[0], id))
			}

			outcome := a.client.InstallBatch(ctx, paths, id)
			if outcome.Success {
				fmt.Println(a.styles.success.Render(outcome.Summary()))
				return nil
			}
			fmt.Println(a.styles.warning.Render(outcome.Summary()))
			return &exitError{code: ExitInstallFailed, err: fmt.Errorf("%d of %d apks installed", len(outcome.Succeeded), len(paths))}
		},
	}
}

// packageCommand runs fn against a single package argument.
func (a *app) packageCommand(name string, usage string, fn func(ctx context.Context, id string, pkg string) types.Outcome) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<package>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := a.requireAdb(); err != nil {
				return err
			}
			pkg := cmd.Args().First()
			if pkg == "" {
				return fmt.Errorf("%w: package", errMissingArgument)
			}
			ctx, cancel := a.context(ctx)
			defer cancel()

			id, err := a.device(ctx, cmd)
			if err != nil {
				return err
			}
			return a.report(fn(ctx, id, pkg))
		},
	}
}

func (a *app) uninstallCommand() *cli.Command {
	return a.packageCommand("uninstall", "remove an app", func(ctx context.Context, id string, pkg string) types.Outcome {
		return a.client.Uninstall(ctx, id, pkg)
	})
}

func (a *app) stopCommand() *cli.Command {
	return a.packageCommand("stop", "force stop an app", func(ctx context.Context, id string, pkg string) types.Outcome {
		return a.client.ForceStop(ctx, id, pkg)
	})
}

func (a *app) launchCommand() *cli.Command {
	return a.packageCommand("launch", "start the launcher activity of an app", func(ctx context.Context, id string, pkg string) types.Outcome {
		return a.client.Launch(ctx, id, pkg)
	})
}

func (a *app) extractCommand() *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "copy the apk of a package, or any remote file, from the device",
		ArgsUsage: "<package>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "out",
				Value: ".",
				Usage: "destination directory, or file when --remote is set",
			},
			&cli.StringFlag{
				Name:  "remote",
				Usage: "remote path to pull instead of a package apk",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := a.requireAdb(); err != nil {
				return err
			}
			remote := cmd.String("remote")
			pkg := cmd.Args().First()
			if remote == "" && pkg == "" {
				return fmt.Errorf("%w: package or --remote", errMissingArgument)
			}
			ctx, cancel := a.context(ctx)
			defer cancel()

			id, err := a.device(ctx, cmd)
			if err != nil {
				return err
			}

			out := cmd.String("out")
			if remote != "" {
				if out == "." {
					out = filepath.Base(remote)
				}
				return a.report(a.client.Extract(ctx, id, remote, out))
			}
			return a.report(a.client.ExtractPackage(ctx, id, pkg, out))
		},
	}
}

func (a *app) configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "show or change the configuration",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "print the configured adb path",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Println(a.styles.label.Render("config  ") + a.styles.help.Render(a.store.Path()))
					fmt.Println(a.styles.label.Render("adb     ") + a.styles.value.Render(a.store.AdbPath()))
					return nil
				},
			},
			{
				Name:      "set",
				Usage:     "set the adb path, an empty value enables auto-detection",
				ArgsUsage: "<adb path>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					path := cmd.Args().First()
					if path != "" && !config.IsExecutable(path) {
						fmt.Println(a.styles.warning.Render(path + " is not executable"))
					}
					if err := a.store.SetAdbPath(path); err != nil {
						return &exitError{code: ExitConfigError, err: err}
					}
					fmt.Println(a.styles.success.Render("saved " + a.store.Path()))
					return nil
				},
			},
		},
	}
}

// report prints outcome and turns a failure into an error carrying its exit code.
func (a *app) report(outcome types.Outcome) error {
	if outcome.Success {
		fmt.Println(a.styles.success.Render(outcome.Message))
		return nil
	}
	if outcome.Cause != "" {
		fmt.Println(a.styles.help.Render("cause: " + outcome.Cause))
	}
	return outcome.Error()
}
