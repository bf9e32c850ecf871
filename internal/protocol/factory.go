// internal/protocol/factory.go
package protocol

import (
	"fmt"

	"go.uber.org/zap"
)

// CreateTransport creates a transport for the given kind
func CreateTransport(kind Kind, serialConfig *SerialConfig, networkConfig *NetworkConfig, logger *zap.Logger) (Transport, error) {
	switch kind {
	case KindSerial:
		logger.Info("Creating serial transport",
			zap.Int("baud_rate", orDefaultSerial(serialConfig).BaudRate),
		)
		return NewSerialTransport(serialConfig, nil, logger), nil
	case KindNetwork:
		logger.Info("Creating network transport",
			zap.Int("port", orDefaultNetwork(networkConfig).Port),
		)
		return NewNetworkTransport(networkConfig, logger), nil
	default:
		return nil, fmt.Errorf("unsupported transport kind: %s", kind)
	}
}

func orDefaultSerial(c *SerialConfig) *SerialConfig {
	if c == nil {
		return DefaultSerialConfig()
	}
	return c
}

func orDefaultNetwork(c *NetworkConfig) *NetworkConfig {
	if c == nil {
		return DefaultNetworkConfig()
	}
	return c
}
