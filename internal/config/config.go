package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Flash backends.
const (
	FlashEsptool = "esptool"
	FlashPIO     = "pio"
)

// Rail keys accepted by TESTER_GATED_RAILS.
const (
	RailVOUT  = "vout"
	RailBPlus = "bplus"
	Rail3V3   = "3v3"
)

// Config holds all station configuration.
type Config struct {
	FlashBackend  string
	FlashBaudRate int
	Build         bool // TESTER_BUILD=no turns the startup build off

	RPCURL      string
	RPCPassword string
	ReportType  string
	TesterName  string

	SerialPort     string
	SerialBaudRate int
	SerialTimeout  time.Duration
	USBVendorID    uint16
	USBProductID   uint16

	FirmwareDir   string
	PIOEnv        string
	PIOPenv       string // PlatformIO virtualenv override
	FirmwareImage string
	Esptool       string
	Chip          string

	FailuresFile   string
	UploadInterval time.Duration
	RetryFailed    bool
	Journal        string

	I2CBus  string
	ADCAddr uint16
	IMUAddr uint16

	BPlusMin   float64
	V33Min     float64
	V33Max     float64
	GatedRails []string
}

// Defaults returns a Config with default values.
func Defaults() Config {
	tester, err := os.Hostname()
	if err != nil || tester == "" {
		tester = "unknown"
	}
	return Config{
		FlashBackend:   FlashEsptool,
		FlashBaudRate:  921600,
		Build:          true,
		RPCURL:         "https://localhost:3000/api/rpc",
		RPCPassword:    "password",
		ReportType:     "mainboard",
		TesterName:     tester,
		SerialPort:     "/dev/ttyUSB0",
		SerialBaudRate: 115200,
		SerialTimeout:  10 * time.Second,
		USBVendorID:    0x1a86,
		USBProductID:   0x7523,
		FirmwareDir:    "slimevr-tracker-esp",
		PIOEnv:         "esp12e",
		Esptool:        "esptool.py",
		Chip:           "esp8266",
		FailuresFile:   "failed_uploads.json",
		UploadInterval: 10 * time.Second,
		Journal:        "jig.db",
		I2CBus:         "/dev/i2c-1",
		ADCAddr:        0x48,
		IMUAddr:        0x4b,
		BPlusMin:       4.0,
		V33Min:         2.8,
		V33Max:         3.2,
		GatedRails:     []string{RailBPlus, Rail3V3},
	}
}

// Load layers the nearest .env and the process environment over Defaults.
// Invalid enum values are errors; unparsable numbers keep their default.
func Load() (Config, error) {
	if err := EnsureDotEnv(); err != nil {
		return Config{}, err
	}
	d := Defaults()

	cfg := Config{
		FlashBackend:  strings.ToLower(String("TESTER_FLASH_WITH", d.FlashBackend)),
		FlashBaudRate: Int("TESTER_FLASH_BAUDRATE", d.FlashBaudRate),
		Build:         !strings.EqualFold(String("TESTER_BUILD", ""), "no"),

		RPCURL:      String("TESTER_RPC_URL", d.RPCURL),
		RPCPassword: String("TESTER_RPC_PASSWORD", d.RPCPassword),
		ReportType:  strings.ToLower(String("TESTER_REPORT_TYPE", d.ReportType)),
		TesterName:  String("TESTER_NAME", d.TesterName),

		SerialPort:     String("TESTER_SERIAL_PORT", d.SerialPort),
		SerialBaudRate: Int("TESTER_SERIAL_BAUDRATE", d.SerialBaudRate),
		SerialTimeout:  Duration("TESTER_SERIAL_TIMEOUT", d.SerialTimeout),
		USBVendorID:    Hex16("TESTER_USB_VID", d.USBVendorID),
		USBProductID:   Hex16("TESTER_USB_PID", d.USBProductID),

		FirmwareDir: String("TESTER_FIRMWARE_DIR", d.FirmwareDir),
		PIOEnv:      String("TESTER_PIO_ENV", d.PIOEnv),
		PIOPenv:     String("TESTER_PIO_PENV", ""),
		Esptool:     String("TESTER_ESPTOOL", d.Esptool),
		Chip:        String("TESTER_CHIP", d.Chip),

		FailuresFile:   String("TESTER_FAILURES_FILE", d.FailuresFile),
		UploadInterval: Duration("TESTER_UPLOAD_INTERVAL", d.UploadInterval),
		RetryFailed:    Bool("TESTER_RETRY_FAILED", false),
		Journal:        os.Getenv("TESTER_JOURNAL"),

		I2CBus:  String("TESTER_I2C_BUS", d.I2CBus),
		ADCAddr: Hex16("TESTER_ADC_ADDR", d.ADCAddr),
		IMUAddr: Hex16("TESTER_IMU_ADDR", d.IMUAddr),

		BPlusMin:   Float("TESTER_BPLUS_MIN", d.BPlusMin),
		V33Min:     Float("TESTER_3V3_MIN", d.V33Min),
		V33Max:     Float("TESTER_3V3_MAX", d.V33Max),
		GatedRails: List("TESTER_GATED_RAILS", d.GatedRails),
	}
	if _, set := os.LookupEnv("TESTER_JOURNAL"); !set {
		cfg.Journal = d.Journal
	}
	cfg.FirmwareImage = String("TESTER_FIRMWARE_IMAGE", DefaultFirmwareImage(cfg.FirmwareDir, cfg.PIOEnv))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultFirmwareImage is where PlatformIO leaves the build for env.
func DefaultFirmwareImage(dir, env string) string {
	return filepath.Join(dir, ".pio", "build", env, "firmware.bin")
}

// Validate checks the enumerated options.
func (c Config) Validate() error {
	switch c.FlashBackend {
	case FlashEsptool, FlashPIO:
	default:
		return errors.Errorf("TESTER_FLASH_WITH: unknown flash backend %q (want esptool or pio)", c.FlashBackend)
	}
	switch c.ReportType {
	case "mainboard", "auxboard":
	default:
		return errors.Errorf("TESTER_REPORT_TYPE: unknown report type %q (want mainboard or auxboard)", c.ReportType)
	}
	for _, r := range c.GatedRails {
		switch r {
		case RailVOUT, RailBPlus, Rail3V3:
		default:
			return errors.Errorf("TESTER_GATED_RAILS: unknown rail %q (want vout, bplus or 3v3)", r)
		}
	}
	if c.V33Min >= c.V33Max {
		return errors.Errorf("3V3 window is empty: min %.3f >= max %.3f", c.V33Min, c.V33Max)
	}
	return nil
}

// Gated reports whether rail failures stop the run.
func (c Config) Gated(rail string) bool {
	for _, r := range c.GatedRails {
		if r == rail {
			return true
		}
	}
	return false
}
