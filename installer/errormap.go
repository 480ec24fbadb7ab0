package installer

import (
	"regexp"
	"strings"
)

// Curated install failure causes.
const (
	CauseMissingSplit             = "missing_split"
	CauseNoMatchingAbis           = "no_matching_abis"
	CauseInconsistentCertificates = "inconsistent_certificates"
	CauseInsufficientStorage      = "insufficient_storage"
	CauseVersionDowngrade         = "version_downgrade"
	CauseAlreadyExists            = "already_exists"
	CauseUpdateIncompatible       = "update_incompatible"
	CauseOlderSdk                 = "older_sdk"
	CauseInvalidApk               = "invalid_apk"
	CauseDeviceOffline            = "device_offline"
	CausePermissionDenied         = "permission_denied"
	CauseTimeout                  = "timeout"
	CauseSplitOrAbi               = "generic_split_abi"
	CauseUnknown                  = "unknown"
	CauseFileNotFound             = "file_not_found"
)

type errorRule struct {
	cause   string
	pattern *regexp.Regexp
	message string
}

// errorRules are evaluated in order; the first match wins.
var errorRules = []errorRule{
	{CauseMissingSplit, regexp.MustCompile(`(?i)INSTALL_FAILED_MISSING_SPLIT|missing split`),
		"The app requires split APKs that were not provided. Install all splits together."},
	{CauseNoMatchingAbis, regexp.MustCompile(`(?i)INSTALL_FAILED_NO_MATCHING_ABIS|no matching abis`),
		"The APK does not support this device's CPU architecture."},
	{CauseInconsistentCertificates, regexp.MustCompile(`(?i)INSTALL_FAILED_INCONSISTENT_CERTIFICATES|signatures do not match`),
		"An installed version of the app is signed with a different certificate. Uninstall it first."},
	{CauseInsufficientStorage, regexp.MustCompile(`(?i)INSTALL_FAILED_INSUFFICIENT_STORAGE|not enough space|insufficient storage`),
		"Not enough free storage on the device."},
	{CauseVersionDowngrade, regexp.MustCompile(`(?i)INSTALL_FAILED_VERSION_DOWNGRADE|downgrade`),
		"A newer version of the app is already installed."},
	{CauseAlreadyExists, regexp.MustCompile(`(?i)INSTALL_FAILED_ALREADY_EXISTS`),
		"The app is already installed."},
	{CauseUpdateIncompatible, regexp.MustCompile(`(?i)INSTALL_FAILED_UPDATE_INCOMPATIBLE`),
		"The update is incompatible with the installed app. Uninstall it first."},
	{CauseOlderSdk, regexp.MustCompile(`(?i)INSTALL_FAILED_OLDER_SDK|requires newer sdk`),
		"The app requires a newer Android version than the device runs."},
	{CauseInvalidApk, regexp.MustCompile(`(?i)INSTALL_FAILED_INVALID_APK|INSTALL_PARSE_FAILED|invalid apk`),
		"The file is not a valid APK."},
	{CauseDeviceOffline, regexp.MustCompile(`(?i)device offline|device '.*' not found|no devices/emulators found`),
		"The device went offline."},
	{CausePermissionDenied, regexp.MustCompile(`(?i)permission denied|INSTALL_FAILED_USER_RESTRICTED|not allowed`),
		"Permission denied on the device."},
	{CauseTimeout, regexp.MustCompile(`(?i)timed? ?out|INSTALL_FAILED_TIMEOUT`),
		"The operation timed out."},
}

var errorKeywords = []string{"error", "failure", "failed", "cannot", "unable"}

var failureMarker = regexp.MustCompile(`(?m)^\s*Failure(\s*\[|$)`)

// HasFailureMarker reports whether adb printed a "Failure [...]" line. Older adb
// versions exit 0 when the package manager rejects an install.
func HasFailureMarker(output string) bool {
	return failureMarker.MatchString(output)
}

// ExtractErrorLine picks the most relevant error line: stderr first, then stdout.
// A line containing an error keyword is preferred over the first non-blank line.
func ExtractErrorLine(stdout string, stderr string) string {
	for _, text := range []string{stderr, stdout} {
		for _, line := range strings.Split(text, "\n") {
			lower := strings.ToLower(line)
			for _, keyword := range errorKeywords {
				if strings.Contains(lower, keyword) {
					return strings.TrimSpace(line)
				}
			}
		}
	}
	for _, text := range []string{stderr, stdout} {
		for _, line := range strings.Split(text, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				return line
			}
		}
	}
	return ""
}

// ClassifyError maps raw adb output onto a curated cause and message.
// Unmatched text yields CauseUnknown, or CauseSplitOrAbi when it mentions splits or ABIs.
func ClassifyError(text string) (cause string, message string) {
	for _, rule := range errorRules {
		if rule.pattern.MatchString(text) {
			return rule.cause, rule.message
		}
	}
	lower := strings.ToLower(text)
	if strings.Contains(lower, "split") || strings.Contains(lower, "abi") {
		return CauseSplitOrAbi, "The APK is incompatible with this device (split APK or CPU architecture mismatch)."
	}
	return CauseUnknown, "The operation failed."
}
