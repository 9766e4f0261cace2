package flash

import (
	"context"

	"github.com/rs/zerolog/log"
)

// PlatformIO builds and uploads the firmware from its source tree.
type PlatformIO struct {
	Runner Runner
	Dir    string // firmware project directory
	Env    string // platformio.ini environment, e.g. esp12e
	Port   string
}

// Build compiles the firmware for p.Env.
func (p *PlatformIO) Build(ctx context.Context) (string, error) {
	log.Info().Str("dir", p.Dir).Str("env", p.Env).Msg("building firmware")
	return p.Runner.Run(ctx, p.Dir, "pio", "run", "-e", p.Env)
}

// Flash builds if needed and uploads to the board on p.Port.
func (p *PlatformIO) Flash(ctx context.Context) (string, error) {
	return p.Runner.Run(ctx, p.Dir, "pio", "run", "-t", "upload", "-e", p.Env, "--upload-port", p.Port)
}
