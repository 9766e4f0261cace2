package flash

import (
	"context"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrNoMAC is returned when esptool output carries no MAC line.
var ErrNoMAC = errors.New("no MAC address found")

// Esptool programs a prebuilt image and reads the chip MAC with esptool.py.
type Esptool struct {
	Runner Runner
	Tool   string // executable, e.g. esptool.py
	Port   string
	Chip   string
	Baud   int
	Image  string
}

// Flash writes e.Image at offset 0 in QIO mode.
func (e *Esptool) Flash(ctx context.Context) (string, error) {
	args := []string{
		"--chip", e.Chip,
		"--port", e.Port,
		"--baud", strconv.Itoa(e.Baud),
		"write_flash", "-fm", "qio", "0x0000", e.Image,
	}
	return e.Runner.Run(ctx, "", e.Tool, args...)
}

// ReadHardwareID returns the chip MAC address together with the tool log.
func (e *Esptool) ReadHardwareID(ctx context.Context) (string, string, error) {
	out, err := e.Runner.Run(ctx, "", e.Tool, "--chip", e.Chip, "--port", e.Port, "read_mac")
	if err != nil {
		return "", out, err
	}
	mac, ok := parseMAC(out)
	if !ok {
		return "", out, ErrNoMAC
	}
	return mac, out, nil
}

// parseMAC returns the value after the first "MAC: " in out.
func parseMAC(out string) (string, bool) {
	for _, line := range strings.Split(out, "\n") {
		_, mac, found := strings.Cut(line, "MAC: ")
		if !found {
			continue
		}
		mac = strings.TrimSpace(mac)
		if mac == "" {
			return "", false
		}
		return mac, true
	}
	return "", false
}
