package flash

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// PlatformIOEnv returns an environment with the PlatformIO virtualenv's bin
// directory prepended to PATH, so pio and esptool.py resolve to the copies
// PlatformIO installed. Detection order: override, then
// ~/.platformio/penv. It returns nil when no virtualenv with pio is found,
// which means commands inherit the parent environment.
func PlatformIOEnv(override string) []string {
	var candidates []string
	if override != "" {
		candidates = append(candidates, override)
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".platformio", "penv"))
	}

	for _, venv := range candidates {
		binDir := venvBinDir(venv)
		if _, err := os.Stat(filepath.Join(binDir, pioExeName())); err == nil {
			return buildEnvWithPath(binDir)
		}
	}
	return nil
}

// venvBinDir returns the bin (or Scripts on Windows) directory for a venv.
func venvBinDir(venvPath string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(venvPath, "Scripts")
	}
	return filepath.Join(venvPath, "bin")
}

func pioExeName() string {
	if runtime.GOOS == "windows" {
		return "pio.exe"
	}
	return "pio"
}

// buildEnvWithPath creates a copy of the current environment with binDir
// prepended to PATH.
func buildEnvWithPath(binDir string) []string {
	env := os.Environ()
	result := make([]string, 0, len(env)+1)
	pathSet := false

	for _, e := range env {
		if strings.HasPrefix(e, "PATH=") {
			result = append(result, "PATH="+binDir+string(os.PathListSeparator)+e[5:])
			pathSet = true
		} else {
			result = append(result, e)
		}
	}

	if !pathSet {
		result = append(result, "PATH="+binDir)
	}
	return result
}
