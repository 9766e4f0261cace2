package serial

import (
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial/enumerator"
)

// PortInfo holds details about a serial port.
type PortInfo struct {
	Name         string
	IsUSB        bool
	VID          string
	PID          string
	SerialNumber string
}

// Matches reports whether the port belongs to the USB device vid:pid.
func (p PortInfo) Matches(vid, pid uint16) bool {
	if !p.IsUSB {
		return false
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(p.VID), "0x"), 16, 16)
	if err != nil {
		return false
	}
	d, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(p.PID), "0x"), 16, 16)
	if err != nil {
		return false
	}
	return uint16(v) == vid && uint16(d) == pid
}

var detailedPorts = enumerator.GetDetailedPortsList

// ListPorts returns available serial ports.
func ListPorts() ([]PortInfo, error) {
	ports, err := detailedPorts()
	if err != nil {
		return nil, err
	}

	var result []PortInfo
	for _, p := range ports {
		result = append(result, PortInfo{
			Name:         p.Name,
			IsUSB:        p.IsUSB,
			VID:          p.VID,
			PID:          p.PID,
			SerialNumber: p.SerialNumber,
		})
	}
	return result, nil
}

// Presence detects the device under test by its USB ids.
type Presence struct{}

// IsPresent reports whether any USB serial port with vid:pid is attached.
// Enumeration errors count as absent.
func (Presence) IsPresent(vid, pid uint16) bool {
	ports, err := ListPorts()
	if err != nil {
		log.Debug().Err(err).Msg("serial port enumeration failed")
		return false
	}
	for _, p := range ports {
		if p.Matches(vid, pid) {
			return true
		}
	}
	return false
}
