// internal/discovery/ports.go
package discovery

import (
	"fmt"
	"sort"
	"strings"

	"go.bug.st/serial/enumerator"
)

// PortInfo describes one serial port present on the host
type PortInfo struct {
	Name         string `json:"name"`
	IsUSB        bool   `json:"is_usb"`
	VID          string `json:"vid,omitempty"`
	PID          string `json:"pid,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
	Product      string `json:"product,omitempty"`
	// Bridge names the USB-serial chip when it is one SQM-LU units ship with
	Bridge string `json:"bridge,omitempty"`
}

// usbBridges lists USB-serial converters found in SQM-LU units, keyed by
// upper-case "VID:PID"
var usbBridges = map[string]string{
	"0403:6001": "FTDI FT232R",
	"0403:6015": "FTDI FT230X",
}

// DetailedPortsList is swapped in tests
var DetailedPortsList = enumerator.GetDetailedPortsList

// ListPorts returns the host's serial ports, known sensor bridges first
func ListPorts() ([]PortInfo, error) {
	details, err := DetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerator error: %w", err)
	}

	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		port := PortInfo{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			VID:          strings.ToUpper(d.VID),
			PID:          strings.ToUpper(d.PID),
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		}
		if d.IsUSB {
			port.Bridge = usbBridges[port.VID+":"+port.PID]
		}
		ports = append(ports, port)
	}

	sort.SliceStable(ports, func(i, j int) bool {
		return rank(ports[i]) < rank(ports[j])
	})
	return ports, nil
}

// SystemPortNames lists port names in ListPorts order
func SystemPortNames() ([]string, error) {
	ports, err := ListPorts()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(ports))
	for _, port := range ports {
		names = append(names, port.Name)
	}
	return names, nil
}

func rank(p PortInfo) int {
	switch {
	case p.Bridge != "":
		return 0
	case p.IsUSB:
		return 1
	default:
		return 2
	}
}
