package installer

import (
	"fmt"
	"path/filepath"
	"strings"
)

type BatchFailure struct {
	Name    string
	Cause   string
	Message string
	Err     error
}

// BatchOutcome aggregates a sequential multi-apk install.
type BatchOutcome struct {
	Success   bool
	Attempted int
	Succeeded []string
	Failures  []BatchFailure
	// NotAttempted lists the apks skipped because the batch was cancelled.
	NotAttempted []string
}

func (b BatchOutcome) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d of %d installed", len(b.Succeeded), b.Attempted)
	if len(b.Succeeded) > 0 {
		fmt.Fprintf(&sb, "\nSucceeded: %s", strings.Join(b.Succeeded, ", "))
	}
	for _, f := range b.Failures {
		fmt.Fprintf(&sb, "\nFailed: %s: %s", f.Name, f.Message)
	}
	if len(b.NotAttempted) > 0 {
		fmt.Fprintf(&sb, "\nNot attempted: %s", strings.Join(b.NotAttempted, ", "))
	}
	return sb.String()
}

func baseNames(paths []string) []string {
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	return names
}
