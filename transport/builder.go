package transport

import (
	"context"
	"time"

	"github.com/sephiroth74/go_adb_apps/process"
)

// ProcessBuilder assembles an ADBCommand and runs it through a Runner.
type ProcessBuilder struct {
	runner  Runner
	command *process.ADBCommand
}

func NewProcessBuilder(runner Runner) *ProcessBuilder {
	return &ProcessBuilder{
		runner:  runner,
		command: process.NewADBCommand(""),
	}
}

func (p *ProcessBuilder) WithPath(path string) *ProcessBuilder {
	p.command.ADBPath = path
	return p
}

func (p *ProcessBuilder) WithSerial(serial string) *ProcessBuilder {
	p.command.Serial = serial
	return p
}

func (p *ProcessBuilder) WithCommand(command string) *ProcessBuilder {
	p.command.ADBCommand = command
	return p
}

func (p *ProcessBuilder) WithArgs(args ...string) *ProcessBuilder {
	p.command.AddArgs(args...)
	return p
}

func (p *ProcessBuilder) WithTimeout(timeout time.Duration) *ProcessBuilder {
	p.command.Timeout = timeout
	return p
}

func (p *ProcessBuilder) Command() *process.ADBCommand {
	return p.command
}

func (p *ProcessBuilder) Invoke(ctx context.Context) (Result, error) {
	return p.runner.Run(ctx, p.command)
}
