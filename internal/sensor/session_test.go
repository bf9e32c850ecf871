package sensor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sqm-service/internal/protocol"
)

const (
	longSettle  = 30 * time.Millisecond
	midSettle   = 20 * time.Millisecond
	shortSettle = 10 * time.Millisecond
)

type sleepRecorder struct {
	slept []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.slept = append(r.slept, d)
	return ctx.Err()
}

func newTestSession(t *testing.T, transport *fakeTransport, locator Locator, debug bool) (*Session, *sleepRecorder) {
	t.Helper()

	s, err := NewSession(Settings{
		Kind:         protocol.KindSerial,
		Address:      "/dev/ttyUSB0",
		Tries:        3,
		Debug:        debug,
		Encoding:     "utf-8",
		LongSettle:   longSettle,
		MidSettle:    midSettle,
		ShortSettle:  shortSettle,
		PollInterval: 2 * time.Millisecond,
		DrainLimit:   100,
	}, transport, locator, zap.NewNop())
	require.NoError(t, err)

	rec := &sleepRecorder{}
	s.sleep = rec.sleep
	return s, rec
}

func connectedSession(t *testing.T, debug bool) (*Session, *fakeTransport, *sleepRecorder) {
	t.Helper()

	transport := newFakeTransport()
	s, rec := newTestSession(t, transport, nil, debug)
	require.NoError(t, s.Connect(context.Background()))
	rec.slept = nil
	return s, transport, rec
}

func TestSendAndReceiveHealthy(t *testing.T) {
	s, transport, rec := connectedSession(t, false)
	_, _, _, readsBefore, _ := transport.snapshot()

	transport.script([]byte("r, 06.70m,0000022921Hz,0000000020c,0000000.000s, 027.0C\r\n"))

	reply, err := s.SendAndReceive(context.Background(), "rx", 3)
	require.NoError(t, err)
	assert.Equal(t, "r, 06.70m,0000022921Hz,0000000020c,0000000.000s, 027.0C", reply)

	sent, _, _, reads, _ := transport.snapshot()
	assert.Equal(t, []string{"rx"}, sent)
	assert.Equal(t, 1, reads-readsBefore, "exactly one read attempt")
	assert.Equal(t, []time.Duration{longSettle}, rec.slept, "exactly one settle delay")
	assert.Equal(t, int64(0), s.Reconnects())
}

func TestSendAndReceiveRecordsReply(t *testing.T) {
	s, transport, _ := connectedSession(t, false)
	transport.script([]byte("i,00000002,00000003,00000001,00000413\r\n"))

	_, err := s.SendAndReceive(context.Background(), "ix", 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"i,00000002,00000003,00000001,00000413"}, s.Drain())
}

func TestSendAndReceiveRetriesThenSucceeds(t *testing.T) {
	tests := []struct {
		name     string
		failures [][]byte
	}{
		{name: "silent device", failures: [][]byte{nil, nil}},
		{name: "undecodable reply", failures: [][]byte{{0xff, 0xfe, 0xfd}}},
		{name: "whitespace-only reply", failures: [][]byte{[]byte("  \r\n"), nil, []byte("\n")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, transport, _ := connectedSession(t, false)
			transport.script(tt.failures...)
			transport.script([]byte("ok\r\n"))

			reply, err := s.SendAndReceive(context.Background(), "rx", 3)
			require.NoError(t, err)
			assert.Equal(t, "ok", reply)

			k := len(tt.failures)
			sent, opens, closes, _, _ := transport.snapshot()
			assert.Len(t, sent, k+1)
			assert.Equal(t, int64(k), s.Reconnects())
			assert.Equal(t, k, closes)
			assert.Len(t, opens, k+1, "initial open plus one per reconnect")
		})
	}
}

func TestSendAndReceiveExhaustedNonDebug(t *testing.T) {
	s, transport, rec := connectedSession(t, false)
	transport.script(nil, nil, nil)

	reply, err := s.SendAndReceive(context.Background(), "rx", 2)
	require.NoError(t, err)
	assert.Empty(t, reply)

	sent, _, _, _, _ := transport.snapshot()
	assert.Len(t, sent, 3)
	assert.Equal(t, int64(2), s.Reconnects())

	// each retry: mid, short (inside reset), mid; each attempt: long
	assert.Equal(t, []time.Duration{
		longSettle, midSettle, shortSettle, midSettle,
		longSettle, midSettle, shortSettle, midSettle,
		longSettle,
	}, rec.slept)
}

func TestSendAndReceiveExhaustedDebug(t *testing.T) {
	s, transport, _ := connectedSession(t, true)
	transport.script(nil, nil, nil)

	reply, err := s.SendAndReceive(context.Background(), "rx", 2)
	require.Error(t, err)
	assert.Empty(t, reply)
	assert.ErrorIs(t, err, protocol.ErrRetriesExhausted)
	assert.ErrorIs(t, err, protocol.ErrRead)
	assert.Equal(t, int64(2), s.Reconnects())
}

func TestSendAndReceiveZeroRetries(t *testing.T) {
	s, transport, _ := connectedSession(t, true)
	transport.script([]byte{0xc3, 0x28})

	_, err := s.SendAndReceive(context.Background(), "rx", 0)
	assert.ErrorIs(t, err, protocol.ErrDecode)
	assert.Equal(t, int64(0), s.Reconnects())
}

func TestSendAndReceiveStopsOnCancel(t *testing.T) {
	s, transport, _ := connectedSession(t, false)
	transport.script(nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.SendAndReceive(ctx, "rx", 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSendAndReceiveRunsCallsInOrder(t *testing.T) {
	s, transport, _ := connectedSession(t, false)
	s.sleep = sleepContext
	transport.script(nil, []byte("A-reply\r\n"), []byte("B-reply\r\n"))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		completed []string
	)
	run := func(command string) {
		defer wg.Done()
		reply, err := s.SendAndReceive(context.Background(), command, 1)
		assert.NoError(t, err)

		mu.Lock()
		defer mu.Unlock()
		completed = append(completed, command+":"+reply)
	}

	wg.Add(1)
	go run("a")
	require.Eventually(t, func() bool {
		sent, _, _, _, _ := transport.snapshot()
		return len(sent) == 1
	}, time.Second, time.Millisecond)

	// a is now inside its retry window
	wg.Add(1)
	go run("b")
	wg.Wait()

	sent, _, _, _, _ := transport.snapshot()
	assert.Equal(t, []string{"a", "a", "b"}, sent)
	assert.Equal(t, []string{"a:A-reply", "b:B-reply"}, completed)
}

func TestConnectUsesConfiguredAddress(t *testing.T) {
	transport := newFakeTransport()
	locator := &fakeLocator{address: "/dev/ttyUSB7"}
	s, _ := newTestSession(t, transport, locator, false)

	require.NoError(t, s.Connect(context.Background()))
	assert.Equal(t, "/dev/ttyUSB0", s.Address())
	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, 0, locator.calls)
}

func TestConnectFallsBackToDiscovery(t *testing.T) {
	transport := newFakeTransport()
	transport.failOpen["/dev/ttyUSB0"] = true
	locator := &fakeLocator{address: "/dev/ttyUSB7"}
	s, _ := newTestSession(t, transport, locator, false)

	require.NoError(t, s.Connect(context.Background()))
	assert.Equal(t, "/dev/ttyUSB7", s.Address())
	assert.Equal(t, 1, locator.calls)

	// resets reuse the discovered address
	transport.script(nil, []byte("ok\n"))
	reply, err := s.SendAndReceive(context.Background(), "rx", 1)
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
	assert.Equal(t, 1, locator.calls)

	_, opens, _, _, _ := transport.snapshot()
	assert.Equal(t, []string{"/dev/ttyUSB7", "/dev/ttyUSB7"}, opens)
}

func TestConnectDiscoveryFailure(t *testing.T) {
	transport := newFakeTransport()
	transport.failOpen["/dev/ttyUSB0"] = true
	locator := &fakeLocator{err: protocol.ErrDeviceNotFound}
	s, _ := newTestSession(t, transport, locator, false)

	err := s.Connect(context.Background())
	assert.ErrorIs(t, err, protocol.ErrDeviceNotFound)
	assert.Equal(t, StateDisconnected, s.State())
}

func TestConnectWithoutLocator(t *testing.T) {
	transport := newFakeTransport()
	transport.failOpen["/dev/ttyUSB0"] = true
	s, _ := newTestSession(t, transport, nil, false)

	err := s.Connect(context.Background())
	assert.ErrorIs(t, err, protocol.ErrConnect)
}

func TestConnectFlushesStaleInput(t *testing.T) {
	transport := newFakeTransport()
	transport.emit("stale 1\n", "stale 2\n")
	s, _ := newTestSession(t, transport, nil, false)

	require.NoError(t, s.Connect(context.Background()))

	_, _, _, _, pending := transport.snapshot()
	assert.Equal(t, 0, pending)
	assert.Empty(t, s.Drain(), "stale input is not a reading")
}

func TestClearBufferDiscardsOneRead(t *testing.T) {
	s, transport, _ := connectedSession(t, false)
	transport.emit("left over\n", "next\n")

	discarded, err := s.ClearBuffer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "left over", discarded)

	_, _, _, _, pending := transport.snapshot()
	assert.Equal(t, 1, pending)
	assert.Empty(t, s.Drain())
}

func TestClearBufferDecodesWithSessionEncoding(t *testing.T) {
	transport := newFakeTransport()
	s, err := NewSession(Settings{
		Kind:     protocol.KindSerial,
		Address:  "/dev/ttyUSB0",
		Encoding: "latin1",
	}, transport, nil, zap.NewNop())
	require.NoError(t, err)
	s.sleep = (&sleepRecorder{}).sleep
	require.NoError(t, s.Connect(context.Background()))

	transport.emit("  22\xb0C \r\n")
	discarded, err := s.ClearBuffer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "22°C", discarded)
}

func TestClearBufferDropsUndecodableInput(t *testing.T) {
	s, transport, _ := connectedSession(t, false)
	transport.emit("\xff\xfe\n")

	discarded, err := s.ClearBuffer(context.Background())
	require.NoError(t, err)
	assert.Empty(t, discarded)

	_, _, _, _, pending := transport.snapshot()
	assert.Equal(t, 0, pending)
}

func TestResetReopensKnownAddress(t *testing.T) {
	s, transport, _ := connectedSession(t, false)

	require.NoError(t, s.Reset(context.Background()))

	_, opens, closes, _, _ := transport.snapshot()
	assert.Equal(t, []string{"/dev/ttyUSB0", "/dev/ttyUSB0"}, opens)
	assert.Equal(t, 1, closes)
	assert.Equal(t, int64(1), s.Reconnects())
	assert.Equal(t, StateIdle, s.State())
}

func TestCloseReadsUntilIdleThenClosesOnce(t *testing.T) {
	s, transport, _ := connectedSession(t, false)
	_, _, _, readsBefore, _ := transport.snapshot()
	transport.emit("a\n", "b\n", "c\n")

	require.NoError(t, s.Close(context.Background()))
	require.NoError(t, s.Close(context.Background()))

	_, _, closes, reads, pending := transport.snapshot()
	assert.Equal(t, 1, closes, "handle released exactly once")
	assert.Equal(t, 4, reads-readsBefore, "three frames plus the empty read")
	assert.Equal(t, 0, pending)
	assert.Equal(t, StateDisconnected, s.State())

	require.NoError(t, s.Connect(context.Background()))
	assert.Empty(t, s.Drain(), "trailing frames are not counted as new")
}

func TestCloseStopsOnReadError(t *testing.T) {
	s, transport, _ := connectedSession(t, false)
	transport.readErr = errors.New("device unplugged")

	require.NoError(t, s.Close(context.Background()))
	_, _, closes, _, _ := transport.snapshot()
	assert.Equal(t, 1, closes)
}

func TestSendFireAndForget(t *testing.T) {
	s, transport, _ := connectedSession(t, false)

	require.NoError(t, s.Send(context.Background(), "rx"))
	sent, _, _, _, _ := transport.snapshot()
	assert.Equal(t, []string{"rx"}, sent)
}

func TestNewSessionRejectsUnknownEncoding(t *testing.T) {
	_, err := NewSession(Settings{Encoding: "no-such-charset"}, newFakeTransport(), nil, zap.NewNop())
	assert.Error(t, err)
}
