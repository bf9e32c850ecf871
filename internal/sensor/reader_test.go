package sensor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqm-service/internal/protocol"
)

func collect(t *testing.T, s *Session, want int) []string {
	t.Helper()

	var got []string
	require.Eventually(t, func() bool {
		got = append(got, s.Drain()...)
		return len(got) >= want
	}, time.Second, 5*time.Millisecond)
	return got
}

func TestContinuousReadCollectsInOrder(t *testing.T) {
	s, transport, _ := connectedSession(t, false)

	require.NoError(t, s.StartContinuousRead())
	defer s.StopContinuousRead()
	assert.Equal(t, StateListening, s.State())

	transport.emit("r, 18.02m\r\n", "r, 18.03m\r\n", "r, 18.01m\r\n")

	got := collect(t, s, 3)
	assert.Equal(t, []string{"r, 18.02m", "r, 18.03m", "r, 18.01m"}, got)
}

func TestContinuousReadRequiresConnection(t *testing.T) {
	s, _ := newTestSession(t, newFakeTransport(), nil, false)
	assert.ErrorIs(t, s.StartContinuousRead(), protocol.ErrNotConnected)
}

func TestContinuousReadStartTwice(t *testing.T) {
	s, _, _ := connectedSession(t, false)

	require.NoError(t, s.StartContinuousRead())
	defer s.StopContinuousRead()
	assert.ErrorIs(t, s.StartContinuousRead(), protocol.ErrAlreadyListening)
}

func TestStopPreventsFurtherAppends(t *testing.T) {
	s, transport, _ := connectedSession(t, false)

	require.NoError(t, s.StartContinuousRead())
	transport.emit("before\n")
	collect(t, s, 1)

	s.StopContinuousRead()
	assert.Equal(t, StateIdle, s.State())

	transport.emit("after 1\n", "after 2\n")
	first := s.Drain()
	time.Sleep(20 * time.Millisecond)
	second := s.Drain()

	assert.Empty(t, first)
	assert.Empty(t, second)

	_, _, _, _, pending := transport.snapshot()
	assert.Equal(t, 2, pending, "stopped reader must not consume input")
}

func TestSequentialDrains(t *testing.T) {
	s, transport, _ := connectedSession(t, false)

	require.NoError(t, s.StartContinuousRead())
	transport.emit("one\n", "two\n")
	collected := collect(t, s, 2)
	s.StopContinuousRead()

	assert.Equal(t, []string{"one", "two"}, collected)
	assert.Empty(t, s.Drain())
}

func TestContinuousReadDuringRetries(t *testing.T) {
	s, transport, _ := connectedSession(t, false)
	s.sleep = sleepContext

	require.NoError(t, s.StartContinuousRead())
	defer s.StopContinuousRead()

	transport.script(nil, []byte("answer\n"))
	reply, err := s.SendAndReceive(context.Background(), "rx", 2)
	require.NoError(t, err)
	assert.Equal(t, "answer", reply)
	assert.Equal(t, StateListening, s.State())

	got := collect(t, s, 1)
	assert.Equal(t, []string{"answer"}, got)
}

func TestCloseStopsContinuousRead(t *testing.T) {
	s, transport, _ := connectedSession(t, false)

	require.NoError(t, s.StartContinuousRead())
	require.NoError(t, s.Close(context.Background()))
	assert.Equal(t, StateDisconnected, s.State())

	transport.emit("late\n")
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, s.Drain())
}

func TestReadBufferConcurrentDrains(t *testing.T) {
	var b ReadBuffer
	const writers, perWriter = 4, 250

	done := make(chan struct{})
	for w := 0; w < writers; w++ {
		go func(w int) {
			for i := 0; i < perWriter; i++ {
				b.Append(fmt.Sprintf("%d-%d", w, i))
			}
			done <- struct{}{}
		}(w)
	}

	seen := make(map[string]int)
	finished := 0
	for finished < writers {
		select {
		case <-done:
			finished++
		default:
		}
		for _, line := range b.Drain() {
			seen[line]++
		}
	}
	for _, line := range b.Drain() {
		seen[line]++
	}

	assert.Len(t, seen, writers*perWriter)
	for line, n := range seen {
		assert.Equal(t, 1, n, "line %s delivered more than once", line)
	}
}

func TestReadBufferDrainEmpty(t *testing.T) {
	var b ReadBuffer
	assert.NotNil(t, b.Drain())
	assert.Equal(t, 0, b.Len())
}
