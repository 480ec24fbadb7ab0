package workmanager

import (
	"context"

	"github.com/sephiroth74/go_adb_apps/types"
)

// WorkManager runs works sequentially, one at a time, in submission order.
type WorkManager struct {
	// ContinueOnError keeps running the remaining works after a failure.
	ContinueOnError bool
}

// Execute runs works in order and emits one pair per executed work. The data
// returned by each work is merged into the input of the next one. The channel
// is closed once the last work completes, after the first failure when
// ContinueOnError is false, or when ctx is cancelled.
func (w WorkManager) Execute(ctx context.Context, works ...Work) chan types.Pair[Data, error] {
	data := Data{}
	dataChannel := make(chan types.Pair[Data, error], len(works))

	go func() {
		defer close(dataChannel)

		for _, worker := range works {
			if err := ctx.Err(); err != nil {
				dataChannel <- types.Pair[Data, error]{First: Data{}, Second: err}
				return
			}

			result, err := worker.Execute(ctx, data.Copy())
			dataChannel <- types.Pair[Data, error]{First: result, Second: err}

			if err != nil && !w.ContinueOnError {
				return
			}

			for k, v := range result {
				data[k] = v
			}
		}
	}()

	return dataChannel
}

type Data map[string]any

func (d Data) Copy() Data {
	c := make(Data, len(d))
	for k, v := range d {
		c[k] = v
	}
	return c
}

type Work interface {
	Execute(ctx context.Context, inputParams Data) (Data, error)
}

// WorkFunc adapts a function to the Work interface.
type WorkFunc func(ctx context.Context, inputParams Data) (Data, error)

func (f WorkFunc) Execute(ctx context.Context, inputParams Data) (Data, error) {
	return f(ctx, inputParams)
}
