// internal/protocol/connection.go
package protocol

import "time"

// SerialConfig represents serial line configuration for SQM-LU devices
type SerialConfig struct {
	BaudRate      int           `json:"baud_rate"`
	DataBits      int           `json:"data_bits"`
	StopBits      int           `json:"stop_bits"`
	Parity        string        `json:"parity"`
	Timeout       time.Duration `json:"timeout"`
	MaxLineLength int           `json:"max_line_length"`
}

// NetworkConfig represents TCP configuration for SQM-LE devices
type NetworkConfig struct {
	Port           int           `json:"port"`
	BufferSize     int           `json:"buffer_size"`
	ConnectTimeout time.Duration `json:"connect_timeout"`
	ReadTimeout    time.Duration `json:"read_timeout"`
	WriteTimeout   time.Duration `json:"write_timeout"`
}

// DefaultSerialConfig mirrors the SQM-LU factory settings.
func DefaultSerialConfig() *SerialConfig {
	return &SerialConfig{
		BaudRate:      115200,
		DataBits:      8,
		StopBits:      1,
		Parity:        "none",
		Timeout:       2 * time.Second,
		MaxLineLength: 1024,
	}
}

// DefaultNetworkConfig mirrors the SQM-LE factory settings.
func DefaultNetworkConfig() *NetworkConfig {
	return &NetworkConfig{
		Port:           10001,
		BufferSize:     256,
		ConnectTimeout: 20 * time.Second,
		ReadTimeout:    20 * time.Second,
		WriteTimeout:   5 * time.Second,
	}
}
