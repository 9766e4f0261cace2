// Package flash drives the external tools that identify, build and program
// the main board firmware.
package flash

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Runner runs an external command in dir and returns its combined output.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (string, error)
}

// ExitError reports a tool that ran but exited unsuccessfully.
type ExitError struct {
	Tool   string
	Code   int
	Output string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("`%s` exited with non-zero exit code %d", e.Tool, e.Code)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

// ExecRunner runs commands on the host. Env, when set, replaces the
// inherited environment.
type ExecRunner struct {
	Env []string
}

func (r ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (string, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if r.Env != nil {
		cmd.Env = r.Env
	}

	output, err := cmd.CombinedOutput()
	out := string(output)
	log.Debug().
		Str("cmd", name).
		Strs("args", args).
		Dur("took", time.Since(start)).
		Str("output", out).
		Msg("command finished")

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return out, &ExitError{Tool: name, Code: exitErr.ExitCode(), Output: out}
		}
		return out, errors.Wrapf(err, "run %s", name)
	}
	return out, nil
}
