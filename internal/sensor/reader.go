// internal/sensor/reader.go
package sensor

import (
	"context"
	"time"
)

// continuousReader polls on a fixed cadence until stopped.
type continuousReader struct {
	interval time.Duration
	poll     func(ctx context.Context)
	cancel   context.CancelFunc
	done     chan struct{}
}

func startReader(interval time.Duration, poll func(ctx context.Context)) *continuousReader {
	ctx, cancel := context.WithCancel(context.Background())
	r := &continuousReader{
		interval: interval,
		poll:     poll,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go r.run(ctx)
	return r
}

func (r *continuousReader) run(ctx context.Context) {
	defer close(r.done)

	timer := time.NewTimer(r.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		r.poll(ctx)
		timer.Reset(r.interval)
	}
}

// stop blocks until the in-flight poll, if any, has returned.
func (r *continuousReader) stop() {
	r.cancel()
	<-r.done
}
