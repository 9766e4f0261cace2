package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.FlashBackend != FlashEsptool {
		t.Errorf("expected FlashBackend=esptool, got=%s", cfg.FlashBackend)
	}
	if cfg.FlashBaudRate != 921600 {
		t.Errorf("expected FlashBaudRate=921600, got=%d", cfg.FlashBaudRate)
	}
	if cfg.RPCURL != "https://localhost:3000/api/rpc" {
		t.Errorf("unexpected RPCURL %s", cfg.RPCURL)
	}
	if cfg.USBVendorID != 0x1a86 || cfg.USBProductID != 0x7523 {
		t.Errorf("unexpected usb ids %04x:%04x", cfg.USBVendorID, cfg.USBProductID)
	}
	if cfg.TesterName == "" {
		t.Error("expected a tester name")
	}
	if !cfg.Build {
		t.Error("expected startup build on by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TESTER_FLASH_WITH", "PIO")
	t.Setenv("TESTER_FLASH_BAUDRATE", "460800")
	t.Setenv("TESTER_BUILD", "no")
	t.Setenv("TESTER_REPORT_TYPE", "auxboard")
	t.Setenv("TESTER_NAME", "bench-3")
	t.Setenv("TESTER_USB_VID", "0x10C4")
	t.Setenv("TESTER_UPLOAD_INTERVAL", "30s")
	t.Setenv("TESTER_RETRY_FAILED", "yes")
	t.Setenv("TESTER_IMU_ADDR", "4a")
	t.Setenv("TESTER_GATED_RAILS", " BPlus , ,3v3,vout")
	t.Setenv("TESTER_FIRMWARE_DIR", "/opt/fw")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FlashBackend != FlashPIO {
		t.Errorf("FlashBackend = %q", cfg.FlashBackend)
	}
	if cfg.FlashBaudRate != 460800 {
		t.Errorf("FlashBaudRate = %d", cfg.FlashBaudRate)
	}
	if cfg.Build {
		t.Error("expected build disabled")
	}
	if cfg.ReportType != "auxboard" || cfg.TesterName != "bench-3" {
		t.Errorf("ReportType = %q, TesterName = %q", cfg.ReportType, cfg.TesterName)
	}
	if cfg.USBVendorID != 0x10c4 || cfg.USBProductID != 0x7523 {
		t.Errorf("usb ids %04x:%04x", cfg.USBVendorID, cfg.USBProductID)
	}
	if cfg.UploadInterval != 30*time.Second || !cfg.RetryFailed {
		t.Errorf("UploadInterval = %s, RetryFailed = %v", cfg.UploadInterval, cfg.RetryFailed)
	}
	if cfg.IMUAddr != 0x4a {
		t.Errorf("IMUAddr = %#x", cfg.IMUAddr)
	}
	if strings.Join(cfg.GatedRails, ",") != "bplus,3v3,vout" {
		t.Errorf("GatedRails = %v", cfg.GatedRails)
	}
	if !cfg.Gated(RailVOUT) {
		t.Error("expected VOUT gated")
	}
	if cfg.FirmwareImage != DefaultFirmwareImage("/opt/fw", "esp12e") {
		t.Errorf("FirmwareImage = %q", cfg.FirmwareImage)
	}
}

func TestLoadInvalidNumberKeepsDefault(t *testing.T) {
	t.Setenv("TESTER_FLASH_BAUDRATE", "fast")
	t.Setenv("TESTER_BPLUS_MIN", "four")
	t.Setenv("TESTER_SERIAL_TIMEOUT", "10")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	d := Defaults()
	if cfg.FlashBaudRate != d.FlashBaudRate || cfg.BPlusMin != d.BPlusMin || cfg.SerialTimeout != d.SerialTimeout {
		t.Errorf("expected defaults, got baud=%d bplus=%v timeout=%s", cfg.FlashBaudRate, cfg.BPlusMin, cfg.SerialTimeout)
	}
}

func TestLoadRejectsUnknownEnums(t *testing.T) {
	tests := map[string]string{
		"TESTER_FLASH_WITH":  "jtag",
		"TESTER_REPORT_TYPE": "extension",
		"TESTER_GATED_RAILS": "bplus,5v",
	}
	for key, val := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := Load(); err == nil || !strings.Contains(err.Error(), key) {
				t.Errorf("expected error naming %s, got %v", key, err)
			}
		})
	}
}

func TestLoadEmptyJournalDisables(t *testing.T) {
	t.Setenv("TESTER_JOURNAL", "")
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Journal != "" {
		t.Errorf("Journal = %q, want disabled", cfg.Journal)
	}
}

func TestValidateRejectsEmptyWindow(t *testing.T) {
	cfg := Defaults()
	cfg.V33Min, cfg.V33Max = 3.3, 3.0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error")
	}
}
