package service

import (
	"context"
	"sync"

	"sqm-service/internal/protocol"
)

// scriptedTransport replies to each Send with the next scripted line; a nil
// entry keeps the device silent for that command.
type scriptedTransport struct {
	mu      sync.Mutex
	open    bool
	address string
	replies [][]byte
	pending [][]byte
	sent    []string
}

func (f *scriptedTransport) Open(_ context.Context, address string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = true
	f.address = address
	return nil
}

func (f *scriptedTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	return nil
}

func (f *scriptedTransport) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *scriptedTransport) Send(_ context.Context, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.open {
		return &protocol.OpError{Op: protocol.OpWrite, Kind: protocol.KindSerial, Err: protocol.ErrNotConnected}
	}
	f.sent = append(f.sent, string(data))
	if len(f.replies) > 0 {
		if f.replies[0] != nil {
			f.pending = append(f.pending, f.replies[0])
		}
		f.replies = f.replies[1:]
	}
	return nil
}

func (f *scriptedTransport) TryRead(context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.pending) == 0 {
		return nil, nil
	}
	data := f.pending[0]
	f.pending = f.pending[1:]
	return data, nil
}

func (f *scriptedTransport) Kind() protocol.Kind { return protocol.KindSerial }

func (f *scriptedTransport) Address() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.address
}

func (f *scriptedTransport) Stats() protocol.Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return protocol.Stats{IsConnected: f.open, OperationCount: int64(len(f.sent))}
}

func (f *scriptedTransport) script(replies ...[]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, replies...)
}

func (f *scriptedTransport) emit(lines ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, line := range lines {
		f.pending = append(f.pending, []byte(line))
	}
}
