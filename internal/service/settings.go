// internal/service/settings.go
package service

import (
	"runtime"

	"sqm-service/internal/config"
	"sqm-service/internal/discovery"
	"sqm-service/internal/protocol"
	"sqm-service/internal/sensor"
)

// transportKind returns the transport the configured device type uses.
// Load has already rejected unknown device types.
func transportKind(cfg *config.Config) protocol.Kind {
	kind, _ := protocol.ParseDeviceType(cfg.Sensor.DeviceType)
	return kind
}

func sessionSettings(cfg *config.Config) sensor.Settings {
	return sensor.Settings{
		Kind:         transportKind(cfg),
		Address:      cfg.Sensor.Address,
		Tries:        cfg.Sensor.Tries,
		Debug:        cfg.Sensor.Debug,
		Encoding:     cfg.Sensor.Encoding,
		LongSettle:   cfg.Sensor.LongSettle,
		MidSettle:    cfg.Sensor.MidSettle,
		ShortSettle:  cfg.Sensor.ShortSettle,
		PollInterval: cfg.Sensor.PollInterval,
		DrainLimit:   cfg.Sensor.CloseDrainLimit,
	}
}

func serialTransportConfig(cfg *config.Config) *protocol.SerialConfig {
	s := cfg.Sensor.Serial
	return &protocol.SerialConfig{
		BaudRate:      s.BaudRate,
		DataBits:      s.DataBits,
		StopBits:      s.StopBits,
		Parity:        s.Parity,
		Timeout:       s.Timeout,
		MaxLineLength: s.MaxLineLength,
	}
}

func networkTransportConfig(cfg *config.Config) *protocol.NetworkConfig {
	n := cfg.Sensor.Network
	return &protocol.NetworkConfig{
		Port:           n.Port,
		BufferSize:     n.BufferSize,
		ConnectTimeout: n.ConnectTimeout,
		ReadTimeout:    n.ReadTimeout,
		WriteTimeout:   n.WriteTimeout,
	}
}

func networkDiscoveryOptions(cfg *config.Config) discovery.NetworkOptions {
	n := cfg.Discovery.Network
	return discovery.NetworkOptions{
		BroadcastAddr: n.BroadcastAddr,
		Port:          n.Port,
		ProbeHex:      n.Probe,
		Window:        n.Window,
		MarkerOffset:  n.MarkerOffset,
		Marker:        byte(n.Marker),
		MACStart:      n.MACStart,
		MACEnd:        n.MACEnd,
	}
}

// serialDiscoveryOptions probes at the configured line speed. An empty
// pattern falls back to the host's usual device names.
func serialDiscoveryOptions(cfg *config.Config) discovery.SerialOptions {
	s := cfg.Discovery.Serial
	opts := discovery.SerialOptions{
		Pattern:       s.Pattern,
		Count:         s.Count,
		UseSystemList: s.UseSystemList,
		Probe:         s.Probe,
		Timeout:       s.Timeout,
		BaudRate:      cfg.Sensor.Serial.BaudRate,
	}
	if s.Marker != "" {
		opts.Marker = s.Marker[0]
	}
	if opts.Pattern == "" {
		opts.Pattern = discovery.DefaultPortPattern(runtime.GOOS)
	}
	return opts
}
