package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/essentialkaos/ek/v12/env"
	"github.com/essentialkaos/ek/v12/fsutil"
	"github.com/rs/zerolog"

	"github.com/sephiroth74/go_adb_apps/types"
)

// Candidates lists the well-known adb locations for goos, most specific first.
func Candidates(goos string, getenv func(string) string, home string) []string {
	exe := "adb"
	if goos == "windows" {
		exe = "adb.exe"
	}

	var dirs []string
	for _, key := range []string{"ANDROID_HOME", "ANDROID_SDK_ROOT"} {
		if root := getenv(key); root != "" {
			dirs = append(dirs, filepath.Join(root, "platform-tools"))
		}
	}

	switch goos {
	case "darwin":
		dirs = append(dirs,
			filepath.Join(home, "Library", "Android", "sdk", "platform-tools"),
			"/opt/homebrew/bin",
			"/usr/local/bin",
		)
	case "windows":
		if local := getenv("LOCALAPPDATA"); local != "" {
			dirs = append(dirs, filepath.Join(local, "Android", "Sdk", "platform-tools"))
		}
		dirs = append(dirs,
			filepath.Join(home, "AppData", "Local", "Android", "Sdk", "platform-tools"),
			`C:\Android\platform-tools`,
			`C:\platform-tools`,
		)
	default:
		dirs = append(dirs,
			filepath.Join(home, "Android", "Sdk", "platform-tools"),
			"/opt/android-sdk/platform-tools",
			"/usr/lib/android-sdk/platform-tools",
			"/usr/local/bin",
			"/usr/bin",
		)
	}

	candidates := make([]string, 0, len(dirs))
	seen := map[string]bool{}
	for _, dir := range dirs {
		path := filepath.Join(dir, exe)
		if !seen[path] {
			seen[path] = true
			candidates = append(candidates, path)
		}
	}
	return candidates
}

// IsExecutable reports whether path is a regular file adb can be spawned from.
func IsExecutable(path string) bool {
	if path == "" || !fsutil.IsRegular(path) {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return fsutil.IsExecutable(path)
}

// Discover returns configured when it is executable, otherwise the first
// executable well-known location, otherwise adb from PATH.
func Discover(configured string, log zerolog.Logger) (string, error) {
	if IsExecutable(configured) {
		return configured, nil
	}
	if configured != "" {
		log.Warn().Msgf("configured adb %q is not executable, searching", configured)
	}

	home, _ := os.UserHomeDir()
	for _, candidate := range Candidates(runtime.GOOS, os.Getenv, home) {
		if IsExecutable(candidate) {
			log.Debug().Msgf("found adb at %s", candidate)
			return candidate, nil
		}
	}

	if path := env.Which("adb"); path != "" {
		return path, nil
	}

	return "", types.NewError(types.KindToolUnavailable, "adb not found; set adb_path in "+AppName+" config", nil)
}

// Resolve discovers adb using the store. The path found is persisted only when
// none was configured: a configured path is never replaced.
func Resolve(store *Store, log zerolog.Logger) (string, error) {
	configured := store.AdbPath()
	path, err := Discover(configured, log)
	if err != nil {
		return "", err
	}
	if configured == "" {
		if err := store.SetAdbPath(path); err != nil {
			log.Warn().Err(err).Msg("unable to save adb path")
		}
	}
	return path, nil
}
