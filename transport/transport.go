package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"os/exec"

	"github.com/alecthomas/repr"
	"github.com/rs/zerolog"

	"github.com/sephiroth74/go_adb_apps/process"
	"github.com/sephiroth74/go_adb_apps/types"
)

const (
	DefaultTimeout  = 30 * time.Second
	StatusTimeout   = 5 * time.Second
	InstallTimeout  = 5 * time.Minute
	TransferTimeout = 5 * time.Minute
)

var (
	ErrTimeout         = errors.New("command timed out")
	ErrToolUnavailable = errors.New("adb executable unavailable")
)

type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

func (r Result) IsOk() bool {
	return r.ExitCode == 0
}

func (r Result) NewError() error {
	return fmt.Errorf("invalid exit code: %d", r.ExitCode)
}

func (r Result) Output() string {
	return strings.TrimSpace(string(r.Stdout))
}

func (r Result) OutputLines() []string {
	return strings.Split(strings.TrimSpace(string(r.Stdout)), "\n")
}

func (r Result) Error() string {
	return strings.TrimSpace(string(r.Stderr))
}

// Message returns stderr if present, stdout otherwise.
func (r Result) Message() string {
	if msg := r.Error(); msg != "" {
		return msg
	}
	return r.Output()
}

func (r Result) String() string {
	return fmt.Sprintf("Result(isOk=`%t`, Stdout=`%s`, Stderr=`%s`)", r.IsOk(), r.Output(), r.Error())
}

func (r Result) Repr() string {
	return repr.String(r)
}

func ErrorResult(err string) Result {
	return Result{ExitCode: 1, Stderr: []byte(err)}
}

func OkResult(str string) Result {
	return Result{ExitCode: 0, Stdout: []byte(str)}
}

// Runner executes a single adb invocation.
//
// A non-zero exit is reported through Result.ExitCode with a nil error. The
// returned error is reserved for ErrTimeout, ErrToolUnavailable, cancellation,
// and unexpected spawn failures.
type Runner interface {
	Run(ctx context.Context, cmd *process.ADBCommand) (Result, error)
}

type processContextKey struct{}

// DetachProcesses returns a context whose cancellation stops new commands from
// starting, while processes already running stay bound to processCtx.
func DetachProcesses(ctx context.Context, processCtx context.Context) context.Context {
	return context.WithValue(ctx, processContextKey{}, processCtx)
}

// ProcessContext returns the context bound to running processes for ctx.
func ProcessContext(ctx context.Context) context.Context {
	if pctx, ok := ctx.Value(processContextKey{}).(context.Context); ok {
		return pctx
	}
	return ctx
}

type ExecRunner struct {
	Log zerolog.Logger
	// WaitDelay bounds how long Run waits for output pipes after the process is gone.
	WaitDelay time.Duration
}

func NewExecRunner(log zerolog.Logger) *ExecRunner {
	return &ExecRunner{Log: log, WaitDelay: 2 * time.Second}
}

func (e *ExecRunner) Run(ctx context.Context, command *process.ADBCommand) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{ExitCode: -1}, err
	}

	timeout := command.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	e.Log.Debug().Msgf("Executing (timeout=%s) `%s`", timeout, command.String())

	pctx, cancel := context.WithTimeout(ProcessContext(ctx), timeout)
	defer cancel()

	cmd := exec.CommandContext(pctx, command.ADBPath, command.FullArgs()...)
	configureProcess(cmd)
	cmd.WaitDelay = e.WaitDelay

	var outb, errb bytes.Buffer
	cmd.Stdout = &outb
	cmd.Stderr = &errb

	err := cmd.Run()

	result := Result{
		ExitCode: -1,
		Stdout:   outb.Bytes(),
		Stderr:   errb.Bytes(),
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if errors.Is(pctx.Err(), context.DeadlineExceeded) && ProcessContext(ctx).Err() == nil {
		e.Log.Warn().Msgf("`%s` timed out after %s", command.String(), timeout)
		result.ExitCode = -1
		return result, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}

	if err == nil {
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if perr := ProcessContext(ctx).Err(); perr != nil {
			return result, perr
		}
		return result, nil
	}

	if cmd.ProcessState == nil {
		if perr := pctx.Err(); perr != nil {
			return result, perr
		}
		e.Log.Warn().Err(err).Msgf("unable to start %s", command.ADBPath)
		return result, fmt.Errorf("%w: %v", ErrToolUnavailable, err)
	}

	return result, err
}

// AsError converts a Runner failure into a *types.Error of the matching kind.
func AsError(err error, message string) error {
	if err == nil {
		return nil
	}
	var typed *types.Error
	if errors.As(err, &typed) {
		return err
	}
	kind := types.KindCommandFailed
	switch {
	case errors.Is(err, ErrTimeout):
		kind = types.KindTimeout
	case errors.Is(err, ErrToolUnavailable):
		kind = types.KindToolUnavailable
	}
	return types.NewError(kind, message, err)
}

// ResultError wraps a non-zero exit into a KindCommandFailed error.
func ResultError(result Result, message string) error {
	msg := result.Message()
	if msg == "" {
		msg = result.NewError().Error()
	}
	if message != "" {
		msg = message + ": " + msg
	}
	return types.NewError(types.KindCommandFailed, msg, result.NewError())
}

// Check runs both conversions: the runner error first, then the exit code.
func Check(result Result, err error, message string) error {
	if err != nil {
		return AsError(err, message)
	}
	if !result.IsOk() {
		return ResultError(result, message)
	}
	return nil
}
