package sensor

import (
	"context"
	"errors"
	"sync"

	"sqm-service/internal/protocol"
)

// fakeTransport simulates a sensor: every Send consumes the next scripted
// reply, which then becomes readable. Lines can also be emitted unprompted.
type fakeTransport struct {
	mu       sync.Mutex
	open     bool
	address  string
	failOpen map[string]bool
	replies  [][]byte
	pending  [][]byte
	sent     []string
	opens    []string
	closes   int
	reads    int
	readErr  error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{failOpen: make(map[string]bool)}
}

func (f *fakeTransport) Open(_ context.Context, address string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failOpen[address] {
		return &protocol.OpError{Op: protocol.OpOpen, Kind: protocol.KindSerial, Addr: address, Err: errors.New("no such device")}
	}
	f.open = true
	f.address = address
	f.opens = append(f.opens, address)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.open = false
	f.closes++
	return nil
}

func (f *fakeTransport) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeTransport) Send(_ context.Context, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.open {
		return &protocol.OpError{Op: protocol.OpWrite, Kind: protocol.KindSerial, Err: protocol.ErrNotConnected}
	}
	f.sent = append(f.sent, string(data))
	if len(f.replies) > 0 {
		reply := f.replies[0]
		f.replies = f.replies[1:]
		if reply != nil {
			f.pending = append(f.pending, reply)
		}
	}
	return nil
}

func (f *fakeTransport) TryRead(context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reads++
	if !f.open {
		return nil, &protocol.OpError{Op: protocol.OpRead, Kind: protocol.KindSerial, Err: protocol.ErrNotConnected}
	}
	if f.readErr != nil {
		return nil, f.readErr
	}
	if len(f.pending) == 0 {
		return nil, nil
	}
	data := f.pending[0]
	f.pending = f.pending[1:]
	return data, nil
}

func (f *fakeTransport) Kind() protocol.Kind { return protocol.KindSerial }

func (f *fakeTransport) Address() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.address
}

func (f *fakeTransport) Stats() protocol.Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return protocol.Stats{IsConnected: f.open, OperationCount: int64(f.reads + len(f.sent))}
}

// script queues one reply per future Send; nil means the device stays silent.
func (f *fakeTransport) script(replies ...[]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, replies...)
}

func (f *fakeTransport) emit(lines ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, line := range lines {
		f.pending = append(f.pending, []byte(line))
	}
}

func (f *fakeTransport) snapshot() (sent []string, opens []string, closes, reads, pending int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...), append([]string(nil), f.opens...), f.closes, f.reads, len(f.pending)
}

type fakeLocator struct {
	mu      sync.Mutex
	address string
	err     error
	calls   int
}

func (l *fakeLocator) Locate(context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return l.address, l.err
}
