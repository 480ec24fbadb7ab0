package workmanager_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sephiroth74/go_adb_apps/types"
	"github.com/sephiroth74/go_adb_apps/workmanager"
)

func step(name string, err error, calls *[]string) workmanager.Work {
	return workmanager.WorkFunc(func(ctx context.Context, in workmanager.Data) (workmanager.Data, error) {
		*calls = append(*calls, name)
		return workmanager.Data{name: len(in)}, err
	})
}

func collect(ch chan types.Pair[workmanager.Data, error]) []types.Pair[workmanager.Data, error] {
	var out []types.Pair[workmanager.Data, error]
	for p := range ch {
		out = append(out, p)
	}
	return out
}

func TestExecuteStopsAtFirstError(t *testing.T) {
	var calls []string
	boom := errors.New("boom")

	results := collect(workmanager.WorkManager{}.Execute(context.Background(),
		step("a", nil, &calls), step("b", boom, &calls), step("c", nil, &calls)))

	assert.Equal(t, []string{"a", "b"}, calls)
	assert.Len(t, results, 2)
	assert.ErrorIs(t, results[1].Second, boom)
}

func TestExecuteContinueOnError(t *testing.T) {
	var calls []string
	boom := errors.New("boom")

	results := collect(workmanager.WorkManager{ContinueOnError: true}.Execute(context.Background(),
		step("a", nil, &calls), step("b", boom, &calls), step("c", nil, &calls)))

	assert.Equal(t, []string{"a", "b", "c"}, calls)
	assert.Len(t, results, 3)
	assert.NoError(t, results[0].Second)
	assert.Error(t, results[1].Second)
	assert.NoError(t, results[2].Second)
	// a and b both contributed one key before c ran
	assert.Equal(t, 2, results[2].First["c"])
}

func TestExecuteCancelled(t *testing.T) {
	var calls []string
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := collect(workmanager.WorkManager{ContinueOnError: true}.Execute(ctx, step("a", nil, &calls)))

	assert.Empty(t, calls)
	assert.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Second, context.Canceled)
}
