package process

import (
	"path/filepath"
	"strings"
	"time"
)

type ADBCommand struct {
	ADBPath    string
	ADBCommand string
	Serial     string
	Args       []string
	Timeout    time.Duration
}

func NewADBCommand(path string) *ADBCommand {
	return &ADBCommand{ADBPath: path, Timeout: 0}
}

func (a *ADBCommand) WithCommand(command string) *ADBCommand {
	a.ADBCommand = command
	return a
}

func (a *ADBCommand) WithSerial(serial string) *ADBCommand {
	a.Serial = serial
	return a
}

func (a *ADBCommand) WithArgs(args ...string) *ADBCommand {
	a.Args = args
	return a
}

func (a *ADBCommand) AddArgs(args ...string) *ADBCommand {
	a.Args = append(a.Args, args...)
	return a
}

func (a *ADBCommand) WithTimeout(time time.Duration) *ADBCommand {
	a.Timeout = time
	return a
}

// FullArgs returns the argument vector passed to adb: [-s serial] command args...
func (a *ADBCommand) FullArgs() []string {
	var args = []string{}
	if a.Serial != "" {
		args = append(args, "-s", a.Serial)
	}

	if a.ADBCommand != "" {
		args = append(args, a.ADBCommand)
	}

	args = append(args, a.Args...)
	return args
}

// Argv is the complete process argv including the adb binary itself.
func (a *ADBCommand) Argv() []string {
	return append([]string{a.ADBPath}, a.FullArgs()...)
}

func (a *ADBCommand) String() string {
	return strings.TrimSpace(filepath.Base(a.ADBPath) + " " + strings.Join(a.FullArgs(), " "))
}
