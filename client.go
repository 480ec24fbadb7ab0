// Package adbapps manages the apps of Android devices through the adb executable.
package adbapps

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/sephiroth74/go_adb_apps/activitymanager"
	"github.com/sephiroth74/go_adb_apps/connection"
	"github.com/sephiroth74/go_adb_apps/installer"
	"github.com/sephiroth74/go_adb_apps/logging"
	"github.com/sephiroth74/go_adb_apps/packagemanager"
	"github.com/sephiroth74/go_adb_apps/shell"
	"github.com/sephiroth74/go_adb_apps/transport"
	"github.com/sephiroth74/go_adb_apps/types"
)

type Client struct {
	Conn      *connection.Connection
	Packages  *packagemanager.PackageManager
	Installer *installer.Installer
	Log       zerolog.Logger
}

type options struct {
	runner transport.Runner
	log    zerolog.Logger
	policy connection.AvailabilityPolicy
}

type Option func(*options)

// WithRunner replaces the process runner, mostly for tests.
func WithRunner(runner transport.Runner) Option {
	return func(o *options) { o.runner = runner }
}

func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithPolicy sets how device availability is checked. Defaults to connection.RequireBoth.
func WithPolicy(policy connection.AvailabilityPolicy) Option {
	return func(o *options) { o.policy = policy }
}

// NewClient returns a Client running adbPath. An empty path falls back to the adb in PATH.
func NewClient(adbPath string, opts ...Option) *Client {
	o := options{log: logging.GetLogger("adb"), policy: connection.RequireBoth}
	for _, opt := range opts {
		opt(&o)
	}

	conn := connection.NewConnection(adbPath, o.runner, o.log)
	conn.Policy = o.policy
	packages := packagemanager.NewPackageManager(conn)

	return &Client{
		Conn:      conn,
		Packages:  packages,
		Installer: installer.NewInstaller(conn, packages),
		Log:       o.log,
	}
}

func (c *Client) AdbPath() string {
	return c.Conn.ADBPath()
}

// SetAdbPath changes the executable for commands started after the call.
func (c *Client) SetAdbPath(path string) {
	c.Conn.SetADBPath(path)
}

func (c *Client) Version(ctx context.Context) (string, error) {
	return c.Conn.Version(ctx)
}

func (c *Client) Shell(id string) *shell.Shell {
	return shell.NewShell(c.Conn, id)
}

func (c *Client) ListDevices(ctx context.Context) ([]types.Device, error) {
	return c.Conn.ListDevices(ctx)
}

func (c *Client) IsDeviceAvailable(ctx context.Context, id string) bool {
	return c.Conn.IsDeviceAvailable(ctx, id)
}

func (c *Client) ListPackages(ctx context.Context, id string, filter types.PackageFilter) ([]types.InstalledApp, error) {
	return c.Packages.ListPackages(ctx, id, filter)
}

func (c *Client) Install(ctx context.Context, apkPath string, id string) types.Outcome {
	return c.Installer.Install(ctx, apkPath, id)
}

func (c *Client) InstallBatch(ctx context.Context, apkPaths []string, id string) installer.BatchOutcome {
	return c.Installer.InstallBatch(ctx, apkPaths, id)
}

func (c *Client) Uninstall(ctx context.Context, id string, packageName string) types.Outcome {
	return c.Installer.Uninstall(ctx, id, packageName)
}

func (c *Client) Extract(ctx context.Context, id string, remotePath string, localPath string) types.Outcome {
	return c.Installer.Extract(ctx, id, remotePath, localPath)
}

func (c *Client) ExtractPackage(ctx context.Context, id string, packageName string, dir string) types.Outcome {
	return c.Installer.ExtractPackage(ctx, id, packageName, dir)
}

func (c *Client) ActivityManager(id string) *activitymanager.ActivityManager {
	return activitymanager.NewActivityManager(c.Shell(id))
}

func (c *Client) ForceStop(ctx context.Context, id string, packageName string) types.Outcome {
	if err := c.Conn.RequireDevice(ctx, id); err != nil {
		return types.Failed(err)
	}
	return c.ActivityManager(id).ForceStop(ctx, packageName)
}

func (c *Client) Launch(ctx context.Context, id string, packageName string) types.Outcome {
	if err := c.Conn.RequireDevice(ctx, id); err != nil {
		return types.Failed(err)
	}
	return c.ActivityManager(id).Launch(ctx, packageName)
}
