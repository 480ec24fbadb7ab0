package packagemanager

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"

	"github.com/alecthomas/repr"
	streams "github.com/sephiroth74/go_streams"

	"github.com/sephiroth74/go_adb_apps/connection"
	"github.com/sephiroth74/go_adb_apps/shell"
	"github.com/sephiroth74/go_adb_apps/transport"
	"github.com/sephiroth74/go_adb_apps/types"
)

var pathRegexp = regexp.MustCompile(`package:(.*)`)

var systemPrefixes = []string{"/system/", "/system_ext/", "/product/", "/vendor/", "/apex/", "/odm/"}

type PackageManager struct {
	Conn *connection.Connection
}

func NewPackageManager(conn *connection.Connection) *PackageManager {
	return &PackageManager{Conn: conn}
}

func (p PackageManager) shell(serial string) *shell.Shell {
	return shell.NewShell(p.Conn, serial)
}

// Path returns the base APK path of packageName.
func (p PackageManager) Path(ctx context.Context, serial string, packageName string) (string, error) {
	result, err := p.shell(serial).Execute(ctx, "pm", "path", packageName)
	if err := transport.Check(result, err, "pm path "+packageName); err != nil {
		return "", err
	}

	// split APKs print one line per split, base first
	for _, line := range result.OutputLines() {
		m := pathRegexp.FindStringSubmatch(strings.TrimSpace(line))
		if len(m) == 2 && m[1] != "" {
			return m[1], nil
		}
	}
	return "", types.NewError(types.KindCommandFailed, "path not found for "+packageName, errors.New("path not found"))
}

// ListPackageEntries runs `pm list packages -f` with the flag matching filter.
func (p PackageManager) ListPackageEntries(ctx context.Context, serial string, filter types.PackageFilter) ([]Package, error) {
	args := []string{"list", "packages", "-f"}
	switch filter {
	case types.FilterUser:
		args = append(args, "-3")
	case types.FilterSystem:
		args = append(args, "-s")
	}

	result, err := p.shell(serial).Execute(ctx, "pm", args...)
	if err := transport.Check(result, err, "pm list packages"); err != nil {
		return nil, err
	}

	var packages []Package
	for _, line := range result.OutputLines() {
		if pkg, ok := ParsePackageLine(line); ok {
			packages = append(packages, pkg)
		}
	}
	return packages, nil
}

// VersionName returns the versionName reported by `dumpsys package`, or "unknown".
func (p PackageManager) VersionName(ctx context.Context, serial string, packageName string) string {
	result, err := p.shell(serial).DumpSys(ctx, "package", packageName)
	if err != nil || !result.IsOk() {
		return types.Unknown
	}
	return NewPackageReader(result.Output()).VersionName()
}

// ListPackages returns the installed applications of the device, sorted by display name.
// The device is verified first. Version lookups run one package at a time and stop
// when ctx is cancelled.
func (p PackageManager) ListPackages(ctx context.Context, serial string, filter types.PackageFilter) ([]types.InstalledApp, error) {
	if err := p.Conn.RequireDevice(ctx, serial); err != nil {
		return nil, err
	}

	packages, err := p.ListPackageEntries(ctx, serial, filter)
	if err != nil {
		return nil, err
	}

	apps := make([]types.InstalledApp, 0, len(packages))
	for _, pkg := range packages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		apps = append(apps, types.InstalledApp{
			PackageName: pkg.Name,
			DisplayName: DisplayName(pkg.Name),
			Version:     p.VersionName(ctx, serial, pkg.Name),
			ApkPath:     pkg.Filename,
			IsSystem:    pkg.IsSystem(filter),
		})
	}

	SortApps(apps)
	p.Conn.Log.Debug().Str("device", serial).Msgf("listed %d %s packages", len(apps), filter)
	return apps, nil
}

// SortApps orders apps by display name, case-insensitively, then by package name.
func SortApps(apps []types.InstalledApp) {
	sort.SliceStable(apps, func(i, j int) bool {
		a, b := strings.ToLower(apps[i].DisplayName), strings.ToLower(apps[j].DisplayName)
		if a != b {
			return a < b
		}
		return apps[i].PackageName < apps[j].PackageName
	})
}

// PackageNames returns the package names of apps, in order.
func PackageNames(apps []types.InstalledApp) []string {
	return streams.Map(apps, func(app types.InstalledApp) string {
		return app.PackageName
	})
}

// ParsePackageLine parses "package:<apk_path>=<package_name>".
// The split happens at the last '=', since APK paths may contain '=' themselves.
func ParsePackageLine(line string) (Package, bool) {
	line = strings.TrimSpace(line)
	rest, ok := strings.CutPrefix(line, "package:")
	if !ok {
		return Package{}, false
	}
	index := strings.LastIndex(rest, "=")
	if index < 0 {
		return Package{}, false
	}
	name := strings.TrimSpace(rest[index+1:])
	if name == "" {
		return Package{}, false
	}
	return Package{Filename: rest[:index], Name: name}, true
}

type Package struct {
	Filename string
	Name     string
}

func (p Package) String() string {
	return repr.String(p)
}

// MaybeIsSystem Check if the package is a system app, judging by its apk path.
// If false is returned the package can still be a system app.
func (p Package) MaybeIsSystem() bool {
	for _, prefix := range systemPrefixes {
		if strings.HasPrefix(p.Filename, prefix) {
			return true
		}
	}
	return false
}

// IsSystem resolves the system flag for a package listed with filter.
func (p Package) IsSystem(filter types.PackageFilter) bool {
	switch filter {
	case types.FilterSystem:
		return true
	case types.FilterUser:
		return false
	default:
		return p.MaybeIsSystem()
	}
}
