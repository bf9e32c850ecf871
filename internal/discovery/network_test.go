package discovery

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sqm-service/internal/protocol"
)

// startResponder answers the first datagram it receives with each of replies
// in order and reports the probe payload.
func startResponder(t *testing.T, replies ...[]byte) (int, <-chan []byte) {
	t.Helper()

	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	probes := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 64)
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			return
		}
		probes <- append([]byte(nil), buf[:n]...)
		for _, r := range replies {
			if _, err := conn.WriteTo(r, from); err != nil {
				return
			}
		}
	}()

	return conn.LocalAddr().(*net.UDPAddr).Port, probes
}

func loopbackOptions(port int, window time.Duration) NetworkOptions {
	opts := DefaultNetworkOptions()
	opts.BroadcastAddr = "127.0.0.1"
	opts.Port = port
	opts.Window = window
	return opts
}

// The reply layout (marker at byte 3, MAC at 24:30) is vendor-protocol-derived
// and best-effort; these tests pin the configured defaults, not the device.
func TestNetworkLocatorAcceptsMarkedReply(t *testing.T) {
	port, probes := startResponder(t, reply(0xf6), []byte{0x00}, reply(0xf7))

	locator, err := NewNetworkLocator(loopbackOptions(port, 2*time.Second), zap.NewNop())
	require.NoError(t, err)

	address, err := locator.Locate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", address)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0xf6}, <-probes)
}

func TestNetworkLocatorWindowExpires(t *testing.T) {
	port, _ := startResponder(t, reply(0x00))

	locator, err := NewNetworkLocator(loopbackOptions(port, 100*time.Millisecond), zap.NewNop())
	require.NoError(t, err)

	start := time.Now()
	_, err = locator.Locate(context.Background())
	assert.ErrorIs(t, err, protocol.ErrDeviceNotFound)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNetworkStrategyRejectsBadProbe(t *testing.T) {
	opts := DefaultNetworkOptions()
	opts.ProbeHex = "zz"

	_, err := NewNetworkStrategy(opts)
	assert.Error(t, err)
}

func TestNetworkStrategyDescribesMAC(t *testing.T) {
	strategy, err := NewNetworkStrategy(DefaultNetworkOptions())
	require.NoError(t, err)

	fields := strategy.Describe(reply(0xf7))
	require.Len(t, fields, 1)
	assert.Equal(t, "mac", fields[0].Key)
	assert.Equal(t, "00204a010203", fields[0].String)

	assert.Empty(t, strategy.Describe([]byte{0, 0, 0, 0xf7}))
}
