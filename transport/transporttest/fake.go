// Package transporttest provides a scripted transport.Runner for tests.
package transporttest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sephiroth74/go_adb_apps/process"
	"github.com/sephiroth74/go_adb_apps/transport"
)

type Response struct {
	Result transport.Result
	Err    error
	// Delay postpones the response. Cancelling the process context ends it early.
	Delay time.Duration
	// Block, when set, holds the response until the channel is closed.
	Block <-chan struct{}
}

// FakeRunner answers commands keyed by their joined FullArgs, e.g.
// "-s emulator-5554 shell getprop ro.product.brand". Each key holds a queue of
// responses; the last one is repeated once the queue is drained.
type FakeRunner struct {
	mu        sync.Mutex
	responses map[string][]Response
	calls     []string
}

func NewFakeRunner() *FakeRunner {
	return &FakeRunner{responses: map[string][]Response{}}
}

func (f *FakeRunner) On(args string, stdout string) *FakeRunner {
	return f.OnResponse(args, Response{Result: transport.OkResult(stdout)})
}

func (f *FakeRunner) OnResult(args string, result transport.Result, err error) *FakeRunner {
	return f.OnResponse(args, Response{Result: result, Err: err})
}

func (f *FakeRunner) OnResponse(args string, response Response) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[args] = append(f.responses[args], response)
	return f
}

// Reset drops all scripted responses for args.
func (f *FakeRunner) Reset(args string) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.responses, args)
	return f
}

func (f *FakeRunner) Run(ctx context.Context, cmd *process.ADBCommand) (transport.Result, error) {
	if err := ctx.Err(); err != nil {
		return transport.Result{ExitCode: -1}, err
	}

	key := strings.Join(cmd.FullArgs(), " ")

	f.mu.Lock()
	f.calls = append(f.calls, key)
	queue, ok := f.responses[key]
	var response Response
	if ok && len(queue) > 0 {
		response = queue[0]
		if len(queue) > 1 {
			f.responses[key] = queue[1:]
		}
	}
	f.mu.Unlock()

	if !ok {
		return transport.ErrorResult(fmt.Sprintf("unexpected command: %s", key)), nil
	}

	if response.Block != nil {
		<-response.Block
	}

	if response.Delay > 0 {
		select {
		case <-time.After(response.Delay):
		case <-transport.ProcessContext(ctx).Done():
			return transport.Result{ExitCode: -1}, transport.ProcessContext(ctx).Err()
		}
	}

	return response.Result, response.Err
}

func (f *FakeRunner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CallCount counts recorded calls whose key starts with prefix.
func (f *FakeRunner) CallCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}
