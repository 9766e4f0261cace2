package main

import (
	"io"

	"github.com/pkg/errors"

	"github.com/buckleypaul/jig/internal/clock"
	"github.com/buckleypaul/jig/internal/config"
	"github.com/buckleypaul/jig/internal/flash"
	"github.com/buckleypaul/jig/internal/hw"
	"github.com/buckleypaul/jig/internal/logbus"
	"github.com/buckleypaul/jig/internal/outbox"
	"github.com/buckleypaul/jig/internal/pipeline"
	"github.com/buckleypaul/jig/internal/report"
	"github.com/buckleypaul/jig/internal/serial"
)

// serialOpener adapts serial.Opener to the pipeline's channel interface.
type serialOpener struct {
	opener serial.Opener
}

func (o serialOpener) Open() (pipeline.SerialChannel, error) {
	p, err := o.opener.Open()
	if err != nil {
		return nil, err
	}
	return p, nil
}

func buildRails(cfg config.Config) []pipeline.Rail {
	return []pipeline.Rail{
		{Name: "VOUT", Channel: 2, Gate: cfg.Gated(config.RailVOUT)},
		{Name: "B+", Channel: 3, Min: pipeline.Bound(cfg.BPlusMin), Gate: cfg.Gated(config.RailBPlus)},
		{Name: "3V3", Channel: 0, Min: pipeline.Bound(cfg.V33Min), Max: pipeline.Bound(cfg.V33Max), Gate: cfg.Gated(config.Rail3V3)},
	}
}

func mainBoardConfig(cfg config.Config) pipeline.MainBoardConfig {
	mc := pipeline.DefaultMainBoardConfig()
	mc.VendorID = cfg.USBVendorID
	mc.ProductID = cfg.USBProductID
	mc.Rails = buildRails(cfg)
	return mc
}

func newRunner(cfg config.Config) flash.Runner {
	return flash.ExecRunner{Env: flash.PlatformIOEnv(cfg.PIOPenv)}
}

func newEsptool(cfg config.Config, runner flash.Runner) *flash.Esptool {
	return &flash.Esptool{
		Runner: runner,
		Tool:   cfg.Esptool,
		Port:   cfg.SerialPort,
		Chip:   cfg.Chip,
		Baud:   cfg.FlashBaudRate,
		Image:  cfg.FirmwareImage,
	}
}

func newPlatformIO(cfg config.Config, runner flash.Runner) *flash.PlatformIO {
	return &flash.PlatformIO{
		Runner: runner,
		Dir:    cfg.FirmwareDir,
		Env:    cfg.PIOEnv,
		Port:   cfg.SerialPort,
	}
}

func newFlasher(cfg config.Config, runner flash.Runner) pipeline.Flasher {
	if cfg.FlashBackend == config.FlashPIO {
		return newPlatformIO(cfg, runner)
	}
	return newEsptool(cfg, runner)
}

// buildPipeline opens the hardware the configured variant needs. The
// returned closers release the i2c devices.
func buildPipeline(cfg config.Config, bus logbus.Producer, clk clock.Clock) (pipeline.Pipeline, []io.Closer, error) {
	variant, err := pipeline.ParseVariant(cfg.ReportType)
	if err != nil {
		return nil, nil, err
	}
	deps := pipeline.Deps{Bus: bus, Clock: clk}
	var closers []io.Closer

	switch variant {
	case pipeline.MainBoardVariant:
		adc, err := hw.OpenDevice(cfg.I2CBus, cfg.ADCAddr)
		if err != nil {
			return nil, nil, errors.Wrap(err, "open ADC failed")
		}
		closers = append(closers, adc)

		runner := newRunner(cfg)
		deps.Presence = serial.Presence{}
		deps.Voltage = hw.NewADS1115(adc, clk)
		deps.Identity = newEsptool(cfg, runner)
		deps.Flasher = newFlasher(cfg, runner)
		deps.Serial = serialOpener{opener: serial.Opener{
			Name:        cfg.SerialPort,
			BaudRate:    cfg.SerialBaudRate,
			ReadTimeout: cfg.SerialTimeout,
		}}

	case pipeline.AuxBoardVariant:
		imu, err := hw.OpenDevice(cfg.I2CBus, cfg.IMUAddr)
		if err != nil {
			return nil, nil, errors.Wrap(err, "open IMU failed")
		}
		closers = append(closers, imu)
		deps.Sensor = hw.NewBNO08x(imu, clk)
	}

	p, err := pipeline.New(variant, deps, mainBoardConfig(cfg), pipeline.DefaultAuxBoardConfig())
	if err != nil {
		closeAll(closers)
		return nil, nil, err
	}
	return p, closers, nil
}

func buildUploader(cfg config.Config, queue *outbox.Queue) (*outbox.Uploader, error) {
	client := report.NewClient(cfg.RPCURL, cfg.RPCPassword, nil)
	return outbox.NewUploader(queue, client, outbox.NewStore(cfg.FailuresFile), outbox.UploaderConfig{
		ReportType:  cfg.ReportType,
		Tester:      cfg.TesterName,
		Interval:    cfg.UploadInterval,
		RetryFailed: cfg.RetryFailed,
	})
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		_ = c.Close()
	}
}
