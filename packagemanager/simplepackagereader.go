package packagemanager

import (
	"github.com/sephiroth74/go_adb_apps/types"
)

// SimplePackageReader reads fields out of `adb shell dumpsys package <name>` output.
type SimplePackageReader struct {
	parser types.DumpsysParser
}

func NewPackageReader(data string) *SimplePackageReader {
	return &SimplePackageReader{parser: types.NewDumpsysParser(data)}
}

// VersionName returns the value of the first "versionName=" line, or "unknown".
func (s SimplePackageReader) VersionName() string {
	return s.getItem("versionName")
}

func (s SimplePackageReader) getItem(name string) string {
	value, ok := s.parser.FindValue(name)
	if !ok || value == "" {
		return types.Unknown
	}
	return value
}
